// Package display draws the diagnostic overlay and shows it in a preview window.
package display

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/ayusman/handpilot/internal/control"
	"github.com/ayusman/handpilot/internal/detector"
	"github.com/ayusman/handpilot/internal/steering"
)

// KeyEscape is the key code that ends the session.
const KeyEscape = 27

// DefaultTitle is the preview window title.
const DefaultTitle = "Finger Angle Tracker"

var (
	vectorColor   = color.RGBA{G: 255}
	tipColor      = color.RGBA{R: 255}
	textColor     = color.RGBA{R: 255}
	skeletonColor = color.RGBA{R: 255, G: 255, B: 255}
	jointColor    = color.RGBA{R: 255, B: 255}
)

// Window shows annotated frames in an OpenCV window.
type Window struct {
	win *gocv.Window
}

// NewWindow opens a preview window with the given title.
func NewWindow(title string) *Window {
	if title == "" {
		title = DefaultTitle
	}
	return &Window{win: gocv.NewWindow(title)}
}

// Render annotates frame, shows it and polls the keyboard once.
// It returns true when ESC was pressed.
func (w *Window) Render(frame *gocv.Mat, hands []detector.HandLandmarks, st control.State) bool {
	Annotate(frame, hands, st)
	w.win.IMShow(*frame)
	return w.win.WaitKey(1)&0xFF == KeyEscape
}

// Close destroys the window.
func (w *Window) Close() error {
	return w.win.Close()
}

// Annotate draws every hand's skeleton, its wrist to index tip vector, and the
// current state text onto frame.
func Annotate(frame *gocv.Mat, hands []detector.HandLandmarks, st control.State) {
	width, height := frame.Cols(), frame.Rows()

	for i := range hands {
		drawSkeleton(frame, &hands[i], width, height)

		wrist := steering.ToPixel(hands[i].Points[detector.Wrist], width, height)
		tip := steering.ToPixel(hands[i].Points[detector.IndexTip], width, height)
		gocv.Line(frame, wrist, tip, vectorColor, 3)
		gocv.Circle(frame, tip, 6, tipColor, -1)
	}

	gocv.PutText(frame, Caption(st), image.Pt(10, 50), gocv.FontHersheySimplex, 1, textColor, 2)
}

// Caption is the status line drawn on every frame.
func Caption(st control.State) string {
	return fmt.Sprintf("%s, Angle: %d degrees", st.Drive, st.Angle)
}

func drawSkeleton(frame *gocv.Mat, hand *detector.HandLandmarks, width, height int) {
	for _, c := range detector.Connections {
		a := steering.ToPixel(hand.Points[c[0]], width, height)
		b := steering.ToPixel(hand.Points[c[1]], width, height)
		gocv.Line(frame, a, b, skeletonColor, 2)
	}
	for _, p := range hand.Points {
		gocv.Circle(frame, steering.ToPixel(p, width, height), 3, jointColor, -1)
	}
}
