package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/xcbat/binskim/internal/model"
)

// mockStep is a test helper that implements the Step interface.
type mockStep struct {
	name      string
	doFunc    func(ctx context.Context, report *model.BinaryScanReport) error
	callCount int
}

// Do implements Step.Do.
func (m *mockStep) Do(ctx context.Context, report *model.BinaryScanReport) error {
	m.callCount++
	if m.doFunc != nil {
		return m.doFunc(ctx, report)
	}
	return nil
}

// Name implements Step.Name.
func (m *mockStep) Name() string {
	return m.name
}

// TestPipelineNew tests the Pipeline constructor.
func TestPipelineNew(t *testing.T) {
	t.Parallel()

	t.Run("creates pipeline with default settings", func(t *testing.T) {
		t.Parallel()

		p := New()

		if p == nil {
			t.Fatal("expected non-nil pipeline")
		}
		if p.StepCount() != 0 {
			t.Errorf("expected 0 steps, got %d", p.StepCount())
		}
	})

	t.Run("applies WithContinueOnError option", func(t *testing.T) {
		t.Parallel()

		p := New(WithContinueOnError(true))

		if !p.continueOnError {
			t.Error("expected continueOnError to be true")
		}
	})
}

// TestPipelineExecute tests step execution order and error handling.
func TestPipelineExecute(t *testing.T) {
	t.Parallel()

	t.Run("executes steps in order", func(t *testing.T) {
		t.Parallel()

		var order []string
		p := New()
		for _, name := range []string{"first", "second", "third"} {
			p.AddStep(&mockStep{
				name: name,
				doFunc: func(_ context.Context, _ *model.BinaryScanReport) error {
					order = append(order, name)
					return nil
				},
			})
		}

		report := model.NewBinaryScanReport("a.exe")
		if err := p.Execute(context.Background(), report); err != nil {
			t.Fatalf("Execute failed: %v", err)
		}

		want := []string{"first", "second", "third"}
		if len(order) != len(want) {
			t.Fatalf("executed %d steps, want %d", len(order), len(want))
		}
		for i, name := range want {
			if order[i] != name {
				t.Errorf("step[%d] = %q, want %q", i, order[i], name)
			}
		}
	})

	t.Run("stops on first error by default", func(t *testing.T) {
		t.Parallel()

		stepErr := errors.New("load failed")
		failing := &mockStep{
			name: "failing",
			doFunc: func(_ context.Context, _ *model.BinaryScanReport) error {
				return stepErr
			},
		}
		after := &mockStep{name: "after"}

		p := New()
		p.AddSteps(failing, after)

		report := model.NewBinaryScanReport("a.exe")
		err := p.Execute(context.Background(), report)

		if !errors.Is(err, stepErr) {
			t.Errorf("Execute error = %v, want %v", err, stepErr)
		}
		if after.callCount != 0 {
			t.Error("expected subsequent step to be skipped")
		}
		if report.ErrorMessage == "" {
			t.Error("expected error to be recorded on report")
		}
	})

	t.Run("continues on error when configured", func(t *testing.T) {
		t.Parallel()

		failing := &mockStep{
			name: "failing",
			doFunc: func(_ context.Context, _ *model.BinaryScanReport) error {
				return errors.New("non-critical")
			},
		}
		after := &mockStep{name: "after"}

		p := New(WithContinueOnError(true))
		p.AddSteps(failing, after)

		report := model.NewBinaryScanReport("a.exe")
		if err := p.Execute(context.Background(), report); err != nil {
			t.Fatalf("Execute failed: %v", err)
		}
		if after.callCount != 1 {
			t.Error("expected subsequent step to run")
		}
	})

	t.Run("respects cancelled context", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		step := &mockStep{name: "never"}
		p := New()
		p.AddStep(step)

		report := model.NewBinaryScanReport("a.exe")
		err := p.Execute(ctx, report)

		if !errors.Is(err, context.Canceled) {
			t.Errorf("Execute error = %v, want context.Canceled", err)
		}
		if step.callCount != 0 {
			t.Error("expected no step to run after cancellation")
		}
	})
}

// TestPipelineStepNames tests step name listing.
func TestPipelineStepNames(t *testing.T) {
	t.Parallel()

	p := New()
	p.AddSteps(&mockStep{name: "a"}, &mockStep{name: "b"})

	names := p.StepNames()
	if len(names) != 2 || names[0] != "a" || names[1] != "b" {
		t.Errorf("StepNames() = %v, want [a b]", names)
	}
}
