package progress

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/trezcool/pathways/core"
)

// blobVersion is bumped whenever State changes in a way older readers cannot decode.
const blobVersion = 1

var (
	// errors
	ErrNotFound    = errors.New("progress not found")
	ErrCorruptBlob = errors.New("corrupt progress blob")
)

// Repository is the durable store of progress blobs, keyed by learner id.
// Implementations return ErrNotFound when nothing was stored for the learner.
type Repository interface {
	GetState(ctx context.Context, learnerID string) ([]byte, error)
	SetState(ctx context.Context, learnerID string, blob []byte) error
	RemoveState(ctx context.Context, learnerID string) error
}

type envelope struct {
	Version int   `json:"version"`
	State   State `json:"state"`
}

// Encode serializes st the way repositories store it.
func Encode(st State) ([]byte, error) {
	blob, err := json.Marshal(envelope{Version: blobVersion, State: st})
	if err != nil {
		return nil, errors.Wrap(err, "encoding progress")
	}
	return blob, nil
}

// Decode parses a stored blob. Anything unreadable, including blobs written by a newer version, is ErrCorruptBlob.
func Decode(blob []byte) (State, error) {
	var env envelope
	if err := json.Unmarshal(blob, &env); err != nil {
		return State{}, errors.Wrap(ErrCorruptBlob, err.Error())
	}
	if env.Version < 1 || env.Version > blobVersion {
		return State{}, errors.Wrapf(ErrCorruptBlob, "unsupported version %d", env.Version)
	}
	st := env.State
	st.normalize()
	return st, nil
}

// Load reads the learner's persisted state.
// A missing or corrupt blob yields an empty state: the corrupt one is logged & left for the next write to replace.
func Load(ctx context.Context, repo Repository, learnerID string, logger core.Logger) (State, error) {
	blob, err := repo.GetState(ctx, learnerID)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return NewState(), nil
		}
		return State{}, errors.Wrap(err, "loading progress")
	}
	st, err := Decode(blob)
	if err != nil {
		if logger != nil {
			logger.Warn("discarding unreadable progress of learner "+learnerID, err)
		}
		return NewState(), nil
	}
	return st, nil
}

// Save merges st into whatever is stored for the learner, so that concurrent sessions never erase each other.
func Save(ctx context.Context, repo Repository, learnerID string, st State, maxActivity int, logger core.Logger) error {
	stored, err := Load(ctx, repo, learnerID, logger)
	if err != nil {
		return err
	}
	merged := stored.Merge(st)
	merged.capActivity(maxActivity)
	blob, err := Encode(merged)
	if err != nil {
		return err
	}
	if err := repo.SetState(ctx, learnerID, blob); err != nil {
		return errors.Wrap(err, "saving progress")
	}
	return nil
}
