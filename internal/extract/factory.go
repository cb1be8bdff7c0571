package extract

import (
	"zipatch/internal/config"
	"zipatch/internal/zp"
)

// NewExtractorFromConfig creates an Extractor with the in-process zip
// decoder and the configured external decoders for rar and 7z. Decoders
// left unset in the config use the defaults.
func NewExtractorFromConfig(cfg config.DecodersConfig, logger zp.Logger) *Dispatcher {
	return newDispatcher(cfg, ExecRunner{}, logger)
}

func newDispatcher(cfg config.DecodersConfig, runner CommandRunner, logger zp.Logger) *Dispatcher {
	rar := withDefault(cfg.Rar, config.DefaultRarDecoder())
	sevenZip := withDefault(cfg.SevenZip, config.DefaultSevenZipDecoder())

	d := NewDispatcher(logger)
	d.Register(zp.FormatZip, NewZipDecoder(logger))
	d.Register(zp.FormatRar, NewProcessDecoder(rar.Command, rar.Args, runner, logger))
	d.Register(zp.FormatSevenZip, NewProcessDecoder(sevenZip.Command, sevenZip.Args, runner, logger))
	return d
}

func withDefault(cfg, def config.DecoderConfig) config.DecoderConfig {
	if cfg.Command == "" {
		return def
	}
	if cfg.Args == nil {
		cfg.Args = def.Args
	}
	return cfg
}
