package digest

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/maestro-run/maestro/internal/domain"
	"github.com/maestro-run/maestro/internal/platform/apperr"
	"github.com/maestro-run/maestro/internal/storage"
)

// workerFanoutLimit bounds the concurrency of GetWorkerDigests so a
// coordinator with many workers cannot open unbounded file descriptors at
// once (spec.md §4.8, §5).
const workerFanoutLimit = 8

// Service produces on-demand activity digests from external JSONL session
// logs. It holds no long-lived file descriptors between calls.
type Service struct {
	store storage.Store
	cache *pathCache
}

// New constructs a Service over store.
func New(store storage.Store) *Service {
	return &Service{store: store, cache: newPathCache()}
}

// GetDigest resolves sessionID's log file, tails it, and produces a Digest.
// A session with no discoverable log file yields an empty (not erroring)
// digest, since the agent process may not have written anything yet.
// maxLength, if > 0, caps each entry's length (0 or less keeps full text);
// last, if > 0, keeps only the most recent N entries.
func (s *Service) GetDigest(ctx context.Context, sessionID string, maxLength, last int) (Digest, error) {
	sess, err := s.store.Sessions().Get(ctx, sessionID)
	if err != nil {
		return Digest{}, apperr.NotFound("session", sessionID)
	}

	path, source, ok := s.cache.get(sessionID)
	if !ok {
		proj, _ := s.store.Projects().Get(ctx, sess.ProjectID)
		workingDir := ""
		if proj != nil {
			workingDir = proj.WorkingDir
		}
		resolved, resolvedSource, err := resolveLogPath(sessionID, workingDir)
		if err != nil {
			return Digest{SessionID: sessionID, State: SessionState(sess)}, nil
		}
		path, source = resolved, resolvedSource
		s.cache.set(sessionID, path, source)
	}

	lines, err := tailLines(path)
	if err != nil {
		return Digest{SessionID: sessionID, State: SessionState(sess)}, nil
	}

	d := buildDigest(sessionID, source, lines, SessionState(sess), maxLength)
	if last > 0 && len(d.Entries) > last {
		d.Entries = d.Entries[len(d.Entries)-last:]
	}
	return d, nil
}

// GetWorkerDigests lists active (non-terminal) sessions whose
// parentSessionId is coordinatorSessionID and requests a digest for each in
// parallel, bounded by workerFanoutLimit. An individual worker's failure
// yields a benign empty digest rather than failing the whole call (spec.md
// §4.8).
func (s *Service) GetWorkerDigests(ctx context.Context, coordinatorSessionID string, maxLength, last int) ([]Digest, error) {
	sessions, err := s.store.Sessions().List(ctx, storage.SessionFilter{ParentSessionID: coordinatorSessionID})
	if err != nil {
		return nil, apperr.Internal("listing worker sessions", err)
	}

	var active []*domain.Session
	for _, sess := range sessions {
		if !sess.Status.IsTerminal() {
			active = append(active, sess)
		}
	}

	digests := make([]Digest, len(active))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workerFanoutLimit)

	for i, sess := range active {
		i, sess := i, sess
		g.Go(func() error {
			d, err := s.GetDigest(gctx, sess.ID, maxLength, last)
			if err != nil {
				digests[i] = Digest{SessionID: sess.ID, State: SessionState(sess)}
				return nil
			}
			digests[i] = d
			return nil
		})
	}
	_ = g.Wait()

	return digests, nil
}
