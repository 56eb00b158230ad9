package metrics

import (
	"github.com/leeforge/thumbnailer/errors"
	"github.com/leeforge/thumbnailer/media/processor"
)

// PipelineObserver turns pipeline transitions into series:
//
//	pipeline_stage_seconds{stage}         time spent in each state
//	pipeline_presets_total{preset}        presets that started resizing
//	pipeline_runs_total{result}           done or failed invocations
//	pipeline_failures_total{stage,kind}   failed runs and skipped presets by stage and error kind
type PipelineObserver struct {
	collector *Collector
}

func NewPipelineObserver(collector *Collector) *PipelineObserver {
	return &PipelineObserver{collector: collector}
}

func (o *PipelineObserver) OnTransition(t processor.Transition) {
	if t.From != processor.StateIdle && t.Elapsed > 0 {
		o.collector.ObserveHistogram("pipeline_stage_seconds", t.Elapsed.Seconds(),
			map[string]string{"stage": t.From.String()})
	}

	if t.Err != nil {
		o.collector.IncCounter("pipeline_failures_total", map[string]string{
			"stage": t.From.String(),
			"kind":  string(errors.TypeOf(t.Err)),
		})
	}

	switch t.To {
	case processor.StateFailed:
		o.collector.IncCounter("pipeline_runs_total", map[string]string{"result": "failed"})
	case processor.StateDone:
		o.collector.IncCounter("pipeline_runs_total", map[string]string{"result": "done"})
	}

	if t.To == processor.StateResizing {
		o.collector.IncCounter("pipeline_presets_total", map[string]string{"preset": t.Preset.Name})
	}
}

var _ processor.Observer = (*PipelineObserver)(nil)
