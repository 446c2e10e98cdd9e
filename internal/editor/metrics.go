package editor

import (
	"errors"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"voxeledit.ai/internal/persistence/store"
)

const (
	opLabel     = "op"
	resultLabel = "result"
	valueLabel  = "value"
)

var (
	editorOps = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "editor_ops_total",
		Help: "The number of editor operations by outcome.",
	}, []string{opLabel, resultLabel})

	editorVoxelsToggled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "editor_voxels_toggled_total",
		Help: "The number of voxels written by toggle operations.",
	}, []string{valueLabel})

	editorDrawables = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "editor_drawables",
		Help: "The number of blocks in the last geometry extraction.",
	})

	editorAutosaves = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "editor_autosaves_total",
		Help: "The number of background scene saves by outcome.",
	}, []string{resultLabel})
)

func resultOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, store.ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}

func instrumentOp(op string, err error) {
	editorOps.
		With(prometheus.Labels{opLabel: op, resultLabel: resultOf(err)}).
		Inc()
}

func instrumentToggle(value bool, n int) {
	editorVoxelsToggled.
		With(prometheus.Labels{valueLabel: strconv.FormatBool(value)}).
		Add(float64(n))
}

func instrumentDrawables(n int) {
	editorDrawables.Set(float64(n))
}

func instrumentAutosave(ok bool) {
	r := "ok"
	if !ok {
		r = "error"
	}
	editorAutosaves.
		With(prometheus.Labels{resultLabel: r}).
		Inc()
}
