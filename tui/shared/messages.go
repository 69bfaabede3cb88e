package shared

import "errors"

// ErrAborted is returned by prompts the user cancelled with esc or ctrl+c.
var ErrAborted = errors.New("aborted by user")
