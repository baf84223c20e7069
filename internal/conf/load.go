package conf

import (
	"fmt"

	"github.com/yola1107/kratos/v2/config"
	"github.com/yola1107/kratos/v2/config/file"
	zconf "github.com/yola1107/kratos/v2/library/log/zap/conf"
)

// LoadConfig loads and validates the bootstrap from the config tree. The
// logger section falls back to zap defaults when the file omits it.
func LoadConfig(flagconf string) (config.Config, *Bootstrap, *zconf.Log) {
	c := config.New(
		config.WithSource(
			file.NewSource(flagconf),
		),
	)

	if err := c.Load(); err != nil {
		panic(err)
	}

	var bc Bootstrap
	if err := c.Scan(&bc); err != nil {
		panic(fmt.Errorf("bootstrap config invalid: %w", err))
	}
	if err := bc.Validate(); err != nil {
		panic(err)
	}

	lc := zconf.DefaultConfig(zconf.WithAppName(Name))
	if err := c.Scan(lc); err != nil {
		panic(fmt.Errorf("logger config invalid: %w", err))
	}

	return c, &bc, lc
}
