package runtime

import (
	"time"

	"github.com/ethpandaops/allure-runtime/pkg/model"
	"github.com/ethpandaops/allure-runtime/pkg/status"
	"github.com/sirupsen/logrus"
)

// UnclosedStepMessage is the diagnostic given to steps force-closed without
// an error to classify.
const UnclosedStepMessage = "step was not closed"

// StopOption configures how a test, fixture or step is closed.
type StopOption func(*stopConfig)

type stopConfig struct {
	err              error
	status           model.Status
	details          *model.StatusDetails
	stage            model.Stage
	stop             time.Time
	noImplementation bool
}

// WithError classifies err into the status of the closed record.
func WithError(err error) StopOption {
	return func(c *stopConfig) {
		c.err = err
	}
}

// WithStatus sets the status explicitly. It takes precedence over WithError.
func WithStatus(s model.Status, details *model.StatusDetails) StopOption {
	return func(c *stopConfig) {
		c.status = s
		c.details = details
	}
}

// WithStage overrides the final stage, which is finished by default.
func WithStage(stage model.Stage) StopOption {
	return func(c *stopConfig) {
		c.stage = stage
	}
}

// WithStopTime overrides the stop timestamp.
func WithStopTime(t time.Time) StopOption {
	return func(c *stopConfig) {
		c.stop = t
	}
}

// WithNoImplementation marks a record whose body never ran. Its status stays
// absent and it carries the no implementation diagnostic.
func WithNoImplementation() StopOption {
	return func(c *stopConfig) {
		c.noImplementation = true
	}
}

func (r *Runtime) stopConfig(opts []StopOption) stopConfig {
	var cfg stopConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

func (r *Runtime) stopTime(cfg stopConfig) int64 {
	if !cfg.stop.IsZero() {
		return model.Timestamp(cfg.stop)
	}
	return r.now()
}

// finish resolves the status and stage of exec and freezes its stop time.
//
// Status precedence is no implementation, explicit status, classified error,
// the status already on the record, and finally passed. Failed or broken
// steps then escalate the result.
func (r *Runtime) finish(exec *model.Executable, cfg stopConfig) {
	switch {
	case cfg.noImplementation:
		exec.Status, exec.StatusDetails = status.NoImplementation()
	case cfg.status != "":
		exec.Status = cfg.status
		if cfg.details != nil {
			exec.StatusDetails = cfg.details
		}
	case cfg.err != nil:
		exec.Status, exec.StatusDetails = r.classifier.Classify(cfg.err)
	case exec.Status != "":
	default:
		exec.Status = model.StatusPassed
	}

	exec.Status = escalate(exec.Status, exec.Steps)

	exec.Stage = model.StageFinished
	if cfg.stage != "" {
		exec.Stage = cfg.stage
	}
	exec.Stop = r.stopTime(cfg)
}

// escalate raises s to the worst failed or broken status among steps.
// Passed and skipped steps never change the result.
func escalate(s model.Status, steps []*model.StepResult) model.Status {
	for _, step := range steps {
		if step.Status == model.StatusFailed || step.Status == model.StatusBroken {
			s = status.Worst(s, step.Status)
		}
	}
	return s
}

// closeStack force-closes open steps from the innermost outwards until the
// stack holds keep entries. Steps get the classification of cfg's error, or
// broken with UnclosedStepMessage when there is none.
func (r *Runtime) closeStack(stack []string, keep int, cfg stopConfig) []string {
	forced := stopConfig{stage: model.StageInterrupted, stop: cfg.stop}
	switch {
	case cfg.err != nil:
		forced.status, forced.details = r.classifier.Classify(cfg.err)
	default:
		forced.status = model.StatusBroken
		forced.details = &model.StatusDetails{Message: UnclosedStepMessage}
	}
	if forced.status == model.StatusPassed {
		forced.status = model.StatusBroken
	}

	for len(stack) > keep {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		entry, ok := r.steps[id]
		if !ok || entry.stopped {
			continue
		}
		r.log.WithFields(logrus.Fields{"uuid": id, "name": entry.result.Name}).Warn("Force-closing open step")
		r.finish(&entry.result.Executable, forced)
		entry.stopped = true
	}
	return stack
}
