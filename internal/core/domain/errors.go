package domain

import (
	"errors"
	"fmt"
)

var (
	ErrDocumentNotFound = errors.New("document not found")
	ErrInvalidInput     = errors.New("invalid input")
	// ErrConfig marks misconfiguration: missing credentials, embedding
	// dimension mismatch against a non-empty index. The only kind that
	// propagates to callers as a hard failure.
	ErrConfig = errors.New("configuration error")
	// ErrTemporary marks transient service failures that callers recover
	// from with a documented fallback.
	ErrTemporary = errors.New("temporary failure")
	// ErrParse marks malformed model output (routing JSON, decomposition).
	ErrParse = errors.New("parse error")
	// ErrInputTooLong is returned by the embedding adapter when the service
	// rejects an input for exceeding its token window. The ingestion path
	// reacts by re-chunking smaller and retrying.
	ErrInputTooLong = errors.New("input too long")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
