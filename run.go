package mpexplain

import (
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// explanationRun carries the logger and timing of one explainer invocation.
type explanationRun struct {
	log   zerolog.Logger
	start time.Time
}

func startRun(logger *zerolog.Logger, method string, pc *PointContainer, nb Neighborhood) *explanationRun {
	l := zerolog.Nop()
	if logger != nil {
		l = *logger
	}
	l = l.With().
		Str("run_id", uuid.NewString()).
		Str("method", method).
		Int("points", pc.Len()).
		Int("original_dims", pc.OriginalDims()).
		Stringer("neighborhood", nb).
		Logger()
	l.Debug().Int("reduced_dims", pc.ReducedDims()).Msg("explanation run started")
	return &explanationRun{log: l, start: time.Now()}
}

func (r *explanationRun) fail(err error) error {
	r.log.Warn().Err(err).Dur("elapsed", time.Since(r.start)).Msg("explanation run aborted")
	return err
}

func (r *explanationRun) finish(res *Result) {
	ev := r.log.Info().
		Dur("elapsed", time.Since(r.start)).
		Float64("confidence_min", res.ConfidenceMin).
		Float64("confidence_max", res.ConfidenceMax)
	if len(res.Rankings) > 0 {
		ev = ev.Int("top_dimension", res.Rankings[0])
	}
	ev.Msg("explanation run finished")
}

func (r *explanationRun) finishNormals(lo, hi float64) {
	r.log.Info().
		Dur("elapsed", time.Since(r.start)).
		Float64("eccentricity_min", lo).
		Float64("eccentricity_max", hi).
		Msg("explanation run finished")
}
