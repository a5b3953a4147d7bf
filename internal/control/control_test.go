package control

import (
	"bytes"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ayusman/handpilot/internal/detector"
	"github.com/ayusman/handpilot/internal/gesture"
)

const (
	frameWidth  = 640
	frameHeight = 480
)

// steeringHand returns a right hand with the index tip at (x,y) relative to a wrist at (0.5,0.8).
func steeringHand(x, y float64) detector.HandLandmarks {
	hand := detector.OpenPalmLandmarks(detector.Right)
	hand.Points[detector.Wrist] = detector.Point3D{X: 0.5, Y: 0.8}
	hand.Points[detector.IndexTip] = detector.Point3D{X: x, Y: y}
	return hand
}

func TestNewState(t *testing.T) {
	want := State{Angle: 90, Drive: gesture.Stop}
	if diff := cmp.Diff(want, NewState()); diff != "" {
		t.Errorf("NewState() mismatch (-want +got):\n%s", diff)
	}
}

func TestDispatch(t *testing.T) {
	t.Run("right hand steers only", func(t *testing.T) {
		st := NewState()
		// index tip straight left of the wrist
		observed := Dispatch(&st, []detector.HandLandmarks{steeringHand(0.25, 0.8)}, frameWidth, frameHeight)

		if !observed {
			t.Error("expected hand to be observed")
		}
		if st.Angle != 90 {
			t.Errorf("Angle = %d, want 90", st.Angle)
		}
		if st.Drive != gesture.Stop {
			t.Errorf("Drive = %s, want STOP", st.Drive)
		}
	})

	t.Run("left hand drives only", func(t *testing.T) {
		st := State{Angle: 40, Drive: gesture.Stop}
		Dispatch(&st, []detector.HandLandmarks{detector.OpenPalmLandmarks(detector.Left)}, frameWidth, frameHeight)

		if diff := cmp.Diff(State{Angle: 40, Drive: gesture.Go}, st); diff != "" {
			t.Errorf("state mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("no hands leaves state untouched", func(t *testing.T) {
		st := State{Angle: 130, Drive: gesture.Go}
		before := st

		if Dispatch(&st, nil, frameWidth, frameHeight) {
			t.Error("expected no observation")
		}
		if st != before {
			t.Errorf("state changed: %+v -> %+v", before, st)
		}
	})

	t.Run("same label twice, last wins", func(t *testing.T) {
		st := NewState()
		hands := []detector.HandLandmarks{
			detector.OpenPalmLandmarks(detector.Left),
			detector.PointingLandmarks(detector.Left),
		}
		Dispatch(&st, hands, frameWidth, frameHeight)

		if st.Drive != gesture.Stop {
			t.Errorf("Drive = %s, want STOP from the last left hand", st.Drive)
		}
	})

	t.Run("both hands in one frame", func(t *testing.T) {
		st := NewState()
		hands := []detector.HandLandmarks{
			detector.OpenPalmLandmarks(detector.Left),
			steeringHand(0.5, 0.2),
		}
		Dispatch(&st, hands, frameWidth, frameHeight)

		if diff := cmp.Diff(State{Angle: 0, Drive: gesture.Go}, st); diff != "" {
			t.Errorf("state mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("unknown handedness is ignored", func(t *testing.T) {
		st := NewState()
		hand := detector.OpenPalmLandmarks("")
		if Dispatch(&st, []detector.HandLandmarks{hand}, frameWidth, frameHeight) {
			t.Error("expected hand without a label to be ignored")
		}
	})
}

func TestDispatch_CarryForward(t *testing.T) {
	st := NewState()

	// wrist (320,384), tip (160,240): dx=160, dy=144, 48 degrees, floored to 40
	Dispatch(&st, []detector.HandLandmarks{steeringHand(0.25, 0.5)}, frameWidth, frameHeight)
	if diff := cmp.Diff(State{Angle: 40, Drive: gesture.Stop}, st); diff != "" {
		t.Fatalf("after frame 1 mismatch (-want +got):\n%s", diff)
	}

	frames := []struct {
		name  string
		hands []detector.HandLandmarks
		want  State
	}{
		{"left hand only", []detector.HandLandmarks{detector.OpenPalmLandmarks(detector.Left)}, State{Angle: 40, Drive: gesture.Go}},
		{"no hands", nil, State{Angle: 40, Drive: gesture.Go}},
		{"fist only", []detector.HandLandmarks{detector.ThumbsUpLandmarks(detector.Left)}, State{Angle: 40, Drive: gesture.Stop}},
	}

	for _, f := range frames {
		Dispatch(&st, f.hands, frameWidth, frameHeight)
		if diff := cmp.Diff(f.want, st); diff != "" {
			t.Errorf("after %s mismatch (-want +got):\n%s", f.name, diff)
		}
	}
}

func TestParseRecord(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		want    Record
		wantErr bool
	}{
		{name: "go", line: `{"state": "GO", "angle": 90}`, want: Record{State: "GO", Angle: 90}},
		{name: "stop", line: `{"state":"STOP","angle":0}`, want: Record{State: "STOP", Angle: 0}},
		{name: "bad state", line: `{"state":"PARK","angle":0}`, wantErr: true},
		{name: "angle too large", line: `{"state":"GO","angle":190}`, wantErr: true},
		{name: "negative angle", line: `{"state":"GO","angle":-10}`, wantErr: true},
		{name: "angle 95", line: `{"state":"GO","angle":95}`, wantErr: true},
		{name: "angle 180", line: `{"state":"STOP","angle":180}`, want: Record{State: "STOP", Angle: 180}},
		{name: "not json", line: `hello`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRecord([]byte(tt.line))
			if tt.wantErr {
				if !errors.Is(err, ErrBadRecord) {
					t.Errorf("ParseRecord() error = %v, want ErrBadRecord", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseRecord() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseRecord() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestEmitter(t *testing.T) {
	var buf bytes.Buffer
	e := NewEmitter(&buf)

	if err := e.Emit(NewState().Record()); err != nil {
		t.Fatalf("Emit() error = %v", err)
	}
	if err := e.Emit(State{Angle: 40, Drive: gesture.Go}.Record()); err != nil {
		t.Fatalf("Emit() error = %v", err)
	}

	want := "{\"state\":\"STOP\",\"angle\":90}\n{\"state\":\"GO\",\"angle\":40}\n"
	if got := buf.String(); got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}
