package sandbox

import (
	"reflect"
	"sync"

	"github.com/traefik/yaegi/interp"

	"datasage/internal/dataset"
	"datasage/internal/plot"
)

// recorder collects what one candidate run produces through the virtual
// packages. Each run gets a fresh recorder.
type recorder struct {
	mu        sync.Mutex
	result    any
	hasResult bool
	plots     []plot.Image
}

func (r *recorder) setResult(v any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.result = v
	r.hasResult = true
}

func (r *recorder) addPlot(img plot.Image) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.plots = append(r.plots, img)
}

func (r *recorder) snapshot() (any, bool, []plot.Image) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.result, r.hasResult, r.plots
}

// buildExports wires the frames, answer and charts virtual packages for one
// run. The frames package is a read-only view over the bound datasets; the
// answer and charts packages write into the recorder.
func buildExports(binds *dataset.Bindings, rec *recorder) interp.Exports {
	return interp.Exports{
		"frames/frames": {
			"Table":   reflect.ValueOf((*dataset.Table)(nil)),
			"Default": reflect.ValueOf(binds.Default),
			"Get":     reflect.ValueOf(binds.Get),
			"Names":   reflect.ValueOf(binds.Names),
			"New":     reflect.ValueOf(dataset.New),
		},
		"answer/answer": {
			"Set": reflect.ValueOf(rec.setResult),
		},
		"charts/charts": {
			"Line": reflect.ValueOf(func(title string, xs, ys []float64) {
				rec.addPlot(plot.Line(title, xs, ys))
			}),
			"Bar": reflect.ValueOf(func(title string, labels []string, values []float64) {
				rec.addPlot(plot.Bar(title, labels, values))
			}),
		},
	}
}
