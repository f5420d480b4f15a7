package prepare

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/xraph/go-utils/errs"
	"go.uber.org/zap"

	"github.com/xraph/keel/di"
)

// Static settings read from Config.
const (
	StaticDirKey    = EnvPrefix + "STATIC_DIR"
	StaticPrefixKey = EnvPrefix + "STATIC_PREFIX"

	DefaultStaticPrefix = "/static"
)

// Static serves a directory of files when APP_STATIC_DIR is set.
type Static struct {
	Adapter di.Adapter
	Logger  di.Logger
	Config  *Config

	mounted string
}

// Prepare mounts the directory under APP_STATIC_PREFIX. Without a directory
// it does nothing.
func (s *Static) Prepare(context.Context) error {
	dir := s.Config.Get(StaticDirKey, "")
	if dir == "" {
		s.Logger.Info("static files disabled")

		return nil
	}

	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("prepare: static dir: %w", err)
	}

	if !info.IsDir() {
		return errs.ErrInvalidInput(StaticDirKey, dir+" is not a directory")
	}

	prefix := strings.TrimRight(s.Config.Get(StaticPrefixKey, DefaultStaticPrefix), "/")
	if prefix != "" && !strings.HasPrefix(prefix, "/") {
		prefix = "/" + prefix
	}

	s.Adapter.Handle(prefix+"/*", http.StripPrefix(prefix, http.FileServer(http.Dir(dir))))
	s.mounted = prefix + "/"

	s.Logger.Info("static files prepared", zap.String("dir", dir), zap.String("prefix", prefix))

	return nil
}

// Mounted returns the path the directory is served under, or "" when disabled.
func (s *Static) Mounted() string {
	return s.mounted
}
