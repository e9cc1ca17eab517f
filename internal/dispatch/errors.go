package dispatch

import "errors"

var (
	ErrNamespaceNotFound = errors.New("namespace not found")
	ErrNamespaceExists   = errors.New("namespace already exists")
	ErrInvalidNamespace  = errors.New("invalid namespace")
	ErrTaskNotFound      = errors.New("task not found")
	ErrTaskNamespace     = errors.New("task does not belong to namespace")
	ErrPublishTimeout    = errors.New("publish timed out")
	ErrClosed            = errors.New("namespace is closed")
	ErrNoCallable        = errors.New("task has no callable")
)
