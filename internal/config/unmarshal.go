package config

import (
	"github.com/cockroachdb/errors"
	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/v2"

	pkgconfig "github.com/smykla-labs/crashtrace/pkg/config"
)

// Unmarshal decodes the merged koanf tree into a Config. Strings coming from
// environment variables are converted to the field types.
func Unmarshal(k *koanf.Koanf) (*pkgconfig.Config, error) {
	cfg := &pkgconfig.Config{}

	err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.TextUnmarshallerHookFunc(),
			),
			Result:           cfg,
			TagName:          "koanf",
			WeaklyTypedInput: true,
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode configuration")
	}

	return cfg, nil
}
