// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cloud

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"go.opentelemetry.io/otel/metric"
)

const (
	ConfigFileBaseName  = ".env"              // The base name for configuration files (e.g., ".env.toml").
	ConfigFileExtension = ".toml"             // The file extension for configuration files.
	ConfigSeparator     = "."                 // The separator used in config file names (e.g., ".env.local.toml").
	EnvConfigFilePrefix = "GCP_CONFIG_PREFIX" // The environment variable for specifying the config directory.
	EnvConfigRuntime    = "GCP_RUNTIME"       // The environment variable for specifying the runtime (e.g., "local", "test", "prod").
	MaxRetries          = 3                   // Retries after the first failed generation call.
	DefaultBackoff      = 2 * time.Second     // Delay before the first retry; doubles per attempt.
)

func fileExists(in string) bool {
	_, err := os.Stat(in)
	return !errors.Is(err, os.ErrNotExist)
}

// ConfigFiles returns the base and runtime-specific configuration file
// paths derived from GCP_CONFIG_PREFIX and GCP_RUNTIME. The runtime defaults
// to "test".
func ConfigFiles() (base string, runtime string) {
	prefix := os.Getenv(EnvConfigFilePrefix)
	if len(prefix) > 0 && !strings.HasSuffix(prefix, string(os.PathSeparator)) {
		prefix = prefix + string(os.PathSeparator)
	}
	env := os.Getenv(EnvConfigRuntime)
	if env == "" {
		env = "test"
	}
	base = prefix + ConfigFileBaseName + ConfigFileExtension
	runtime = prefix + ConfigFileBaseName + ConfigSeparator + env + ConfigFileExtension
	return base, runtime
}

// LoadConfig decodes the base configuration file and then the runtime file
// into baseConfig. Values in the runtime file override the base file; a
// missing file is skipped.
func LoadConfig(baseConfig interface{}) error {
	base, runtime := ConfigFiles()
	for _, name := range []string{base, runtime} {
		if !fileExists(name) {
			slog.Debug("configuration file not found", "file", name)
			continue
		}
		if _, err := toml.DecodeFile(name, baseConfig); err != nil {
			return fmt.Errorf("failed to decode configuration file %s: %w", name, err)
		}
		slog.Info("loaded configuration file", "file", name)
	}
	return nil
}

// retryable decides whether an error returned by a backend is worth another try.
type retryable func(error) bool

// withRetries calls fn until it succeeds, the retries are used up, the error
// is permanent or ctx is done. The wait doubles after every failure.
func withRetries[T any](
	ctx context.Context,
	retryCounter metric.Int64Counter,
	backoff time.Duration,
	canRetry retryable,
	fn func(context.Context) (T, error),
) (T, error) {
	var zero T
	wait := backoff
	for attempt := 0; ; attempt++ {
		out, err := fn(ctx)
		if err == nil {
			return out, nil
		}
		if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return zero, err
		}
		if attempt >= MaxRetries || (canRetry != nil && !canRetry(err)) {
			return zero, err
		}
		if retryCounter != nil {
			retryCounter.Add(ctx, 1)
		}
		slog.WarnContext(ctx, "generation call failed, retrying", "attempt", attempt+1, "error", err)
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(wait):
		}
		wait *= 2
	}
}
