package service

import "errors"

// ErrInvalidQuery is returned for list parameters the archive cannot serve.
var ErrInvalidQuery = errors.New("invalid query")

// ErrImportAborted is returned when an import stops before its last row.
var ErrImportAborted = errors.New("import aborted")
