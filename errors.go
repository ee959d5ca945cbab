package cluster

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyInput is returned by Build for an empty point set when
	// Options.RejectEmpty is set.
	ErrEmptyInput = errors.New("cluster: empty point set")

	// ErrUnknownCluster matches every *UnknownClusterError.
	ErrUnknownCluster = errors.New("cluster: unknown cluster id")

	// ErrInvalidConfig matches every *ConfigError.
	ErrInvalidConfig = errors.New("cluster: invalid configuration")
)

// UnknownClusterError reports a cluster id that does not belong to the index
// generation it was used against.
type UnknownClusterError struct {
	ID int
}

func (e *UnknownClusterError) Error() string {
	return fmt.Sprintf("cluster: no cluster with id %d in this generation", e.ID)
}

func (e *UnknownClusterError) Is(target error) bool {
	return target == ErrUnknownCluster
}

// ConfigError names the option that failed validation.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("cluster: invalid %s: %s", e.Field, e.Reason)
}

func (e *ConfigError) Is(target error) bool {
	return target == ErrInvalidConfig
}
