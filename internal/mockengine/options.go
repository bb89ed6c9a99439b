package mockengine

import (
	"time"

	"github.com/pddg/sparkly/internal/engine"
)

type Option func(*Engine)

// WithItem sets the update reported by every check.
// The default is MockItem.
func WithItem(item engine.AppcastItem) Option {
	return func(e *Engine) {
		e.item = item
	}
}

// WithUserUpdateState sets the state reported with the found update.
func WithUserUpdateState(state engine.UserUpdateState) Option {
	return func(e *Engine) {
		e.userState = state
	}
}

// WithFailure makes every check fail with err after the given virtual delay.
func WithFailure(after time.Duration, err error) Option {
	return func(e *Engine) {
		e.failAfter = after
		e.failErr = err
	}
}

// WithStartError makes Start fail.
func WithStartError(err error) Option {
	return func(e *Engine) {
		e.startErr = err
	}
}

// WithPermissionRequest asks for permission to check automatically right
// after the engine started, if the delegate wants a prompt.
func WithPermissionRequest(systemProfile ...map[string]string) Option {
	return func(e *Engine) {
		e.askPermission = true
		e.systemProfile = systemProfile
	}
}

// WithReleaseNotes downloads the release notes of found updates that carry
// a release notes URL, if the delegate wants them.
func WithReleaseNotes(fetcher ReleaseNotesFetcher) Option {
	return func(e *Engine) {
		e.releaseNotes = fetcher
	}
}

// WithChunks sets the sizes in which the update is received.
// The default splits the content length into three quarters and the rest.
func WithChunks(chunks ...uint64) Option {
	return func(e *Engine) {
		e.chunks = chunks
	}
}

// WithArchive extracts the archive at path into a directory named after the
// update version under workDir while installing. The archive must be a tar
// archive, optionally bzip2 compressed.
func WithArchive(path, workDir string, x Extractor) Option {
	return func(e *Engine) {
		e.archive = path
		e.workDir = workDir
		e.extractor = x
	}
}
