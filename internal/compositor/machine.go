package compositor

import (
	"github.com/felixgeelhaar/statekit"
)

// Stage is a state of one compositing call.
type Stage string

const (
	StageIdle               Stage = "idle"
	StageTemplateLoaded     Stage = "template_loaded"
	StageSourceLoaded       Stage = "source_loaded"
	StageOutputCreated      Stage = "output_created"
	StageTemplatePageCopied Stage = "template_page_copied"
	StagePagesExtracted     Stage = "pages_extracted"
	StagePagesEmbedded      Stage = "pages_embedded"
	StageDrawnLeft          Stage = "drawn_left"
	StageDrawnRight         Stage = "drawn_right"
	StageSerialized         Stage = "serialized"
	StageDone               Stage = "done"
	StageFailed             Stage = "failed"
)

const (
	eventAdvance statekit.EventType = "ADVANCE"
	eventFail    statekit.EventType = "FAIL"
)

// Trace records the states one call went through and, when it failed,
// why.
type Trace struct {
	States []Stage
	Reason string
}

// Last returns the final state reached.
func (t Trace) Last() Stage {
	if len(t.States) == 0 {
		return ""
	}
	return t.States[len(t.States)-1]
}

// Strings returns the visited states as strings.
func (t Trace) Strings() []string {
	out := make([]string, len(t.States))
	for i, s := range t.States {
		out[i] = string(s)
	}
	return out
}

func sid(s Stage) statekit.StateID { return statekit.StateID(s) }

// recordFailure copies the failure reason from the FAIL event payload.
// Actions receive **Trace since the context type is *Trace.
func recordFailure(ctx **Trace, event statekit.Event) {
	if ctx == nil || *ctx == nil {
		return
	}
	if reason, ok := event.Payload.(string); ok {
		(*ctx).Reason = reason
	}
}

// newCallMachine builds the statechart of one compositing call. Every
// working state advances to the next on ADVANCE and ends in failed on FAIL.
func newCallMachine() (*statekit.MachineConfig[*Trace], error) {
	return statekit.NewMachine[*Trace]("compose").
		WithInitial(sid(StageIdle)).
		WithContext(&Trace{}).
		WithAction("recordFailure", recordFailure).
		State(sid(StageIdle)).
			On(eventAdvance).Target(sid(StageTemplateLoaded)).
			On(eventFail).Target(sid(StageFailed)).Do("recordFailure").
			Done().
		State(sid(StageTemplateLoaded)).
			On(eventAdvance).Target(sid(StageSourceLoaded)).
			On(eventFail).Target(sid(StageFailed)).Do("recordFailure").
			Done().
		State(sid(StageSourceLoaded)).
			On(eventAdvance).Target(sid(StageOutputCreated)).
			On(eventFail).Target(sid(StageFailed)).Do("recordFailure").
			Done().
		State(sid(StageOutputCreated)).
			On(eventAdvance).Target(sid(StageTemplatePageCopied)).
			On(eventFail).Target(sid(StageFailed)).Do("recordFailure").
			Done().
		State(sid(StageTemplatePageCopied)).
			On(eventAdvance).Target(sid(StagePagesExtracted)).
			On(eventFail).Target(sid(StageFailed)).Do("recordFailure").
			Done().
		State(sid(StagePagesExtracted)).
			On(eventAdvance).Target(sid(StagePagesEmbedded)).
			On(eventFail).Target(sid(StageFailed)).Do("recordFailure").
			Done().
		State(sid(StagePagesEmbedded)).
			On(eventAdvance).Target(sid(StageDrawnLeft)).
			On(eventFail).Target(sid(StageFailed)).Do("recordFailure").
			Done().
		State(sid(StageDrawnLeft)).
			On(eventAdvance).Target(sid(StageDrawnRight)).
			On(eventFail).Target(sid(StageFailed)).Do("recordFailure").
			Done().
		State(sid(StageDrawnRight)).
			On(eventAdvance).Target(sid(StageSerialized)).
			On(eventFail).Target(sid(StageFailed)).Do("recordFailure").
			Done().
		State(sid(StageSerialized)).
			On(eventAdvance).Target(sid(StageDone)).
			On(eventFail).Target(sid(StageFailed)).Do("recordFailure").
			Done().
		State(sid(StageDone)).
			Final().
			Done().
		State(sid(StageFailed)).
			Final().
			Done().
		Build()
}

// run drives one call's interpreter and keeps its trace.
type run struct {
	interp *statekit.Interpreter[*Trace]
	trace  *Trace
}

func startRun() (*run, error) {
	machine, err := newCallMachine()
	if err != nil {
		return nil, err
	}

	trace := &Trace{}
	interp := statekit.NewInterpreter(machine)
	interp.UpdateContext(func(c **Trace) {
		*c = trace
	})
	interp.Start()

	r := &run{interp: interp, trace: trace}
	r.record()
	return r, nil
}

func (r *run) record() {
	r.trace.States = append(r.trace.States, Stage(r.interp.State().Value))
}

// advance moves to the next stage and returns it.
func (r *run) advance() Stage {
	r.interp.Send(statekit.Event{Type: eventAdvance})
	r.record()
	return r.trace.Last()
}

func (r *run) fail(err error) {
	r.interp.Send(statekit.Event{Type: eventFail, Payload: err.Error()})
	r.record()
}

func (r *run) stop() Trace {
	r.interp.Stop()
	return *r.trace
}
