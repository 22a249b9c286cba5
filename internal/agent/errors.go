package agent

import (
	"errors"

	"github.com/farmaciaresumida-ux/doses-farmacologia/internal/store"
)

// ErrNotFound reports an unknown draft id. It aliases the store sentinel so
// callers can check either package.
var ErrNotFound = store.ErrNotFound

// ErrInvalidState reports an operation attempted on a draft outside the
// pending state. Terminal drafts never transition or re-dispatch.
var ErrInvalidState = errors.New("draft is not pending")
