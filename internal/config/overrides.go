package config

// Overrides carries command-line settings. Zero values leave the loaded
// configuration untouched.
type Overrides struct {
	ConfigPath string
	Debug      bool
	LogFile    string
	SplitUnit  int
	FPS        float64
	Workers    int
	Output     string
	Binary     bool

	// Set only when the corresponding flag was given, so false can
	// override a true from the file.
	Interpolate    *bool
	SwapHandedness *bool
	SortPoints     *bool
	Metrics        *bool
}

// apply applies CLI overrides to the config.
func (o Overrides) apply(cfg *Config) {
	if o.Debug {
		cfg.Logging.Level = "debug"
	}
	if o.LogFile != "" {
		cfg.Logging.LogFile = o.LogFile
	}
	if o.SplitUnit > 0 {
		cfg.Import.SplitUnit = o.SplitUnit
	}
	if o.FPS > 0 {
		cfg.Playback.FPS = o.FPS
	}
	if o.Workers > 0 {
		cfg.Workers = o.Workers
	}
	if o.Output != "" {
		cfg.Export.Output = o.Output
	}
	if o.Binary {
		cfg.Export.Binary = true
	}
	if o.Interpolate != nil {
		cfg.Import.InterpolateSamples = *o.Interpolate
	}
	if o.SwapHandedness != nil {
		cfg.Import.SwapHandedness = *o.SwapHandedness
	}
	if o.SortPoints != nil {
		cfg.Points.Sort = *o.SortPoints
	}
	if o.Metrics != nil {
		cfg.Metrics.Enabled = *o.Metrics
	}
}
