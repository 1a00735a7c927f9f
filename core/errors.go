package core

import "errors"

// ErrMissingSetting is returned by Resolve when a required option (domain,
// client_id, client_secret) is absent or empty. Registration must abort on
// it; nothing is partially wired.
var ErrMissingSetting = errors.New("missing_setting")
