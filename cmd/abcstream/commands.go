package main

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/Faultbox/abcstream/internal/export"
	"github.com/Faultbox/abcstream/internal/logger"
	"github.com/Faultbox/abcstream/internal/sampling"
	"github.com/Faultbox/abcstream/internal/scene"
)

func infoCommand() *cli.Command {
	return &cli.Command{
		Name:      "info",
		Usage:     "print the node tree and per-schema summaries",
		ArgsUsage: "<cache.yaml>",
		Action: func(c *cli.Context) error {
			s, err := loadScene(c)
			if err != nil {
				return err
			}
			w := c.App.Writer
			fmt.Fprintf(w, "Time:    %.3f - %.3f\n", s.StartTime(), s.EndTime())
			fmt.Fprintf(w, "Frames:  %d\n", s.FrameCount())
			fmt.Fprintf(w, "Schemas: %d\n\n", len(s.Schemas()))
			return s.Walk(func(n *scene.Node) error {
				printNode(w, n)
				return nil
			})
		},
	}
}

func depth(n *scene.Node) int {
	d := 0
	for p := n.Parent(); p != nil; p = p.Parent() {
		d++
	}
	return d
}

func printNode(w io.Writer, n *scene.Node) {
	indent := strings.Repeat("  ", depth(n))
	sc := n.Schema()
	if sc == nil {
		fmt.Fprintf(w, "%s%s\n", indent, n.Path())
		return
	}
	sum := sc.Summary()
	fmt.Fprintf(w, "%s%s [%s] samples=%d constant=%t\n",
		indent, n.Path(), sum.Kind, sum.TimeSampling.Count, sum.Constant)
	switch {
	case sum.Mesh != nil:
		m := sum.Mesh
		fmt.Fprintf(w, "%s  topology=%s normals=%t uv0=%t velocities=%t\n",
			indent, m.TopologyVariance, m.HasNormals, m.HasUV0, m.HasVelocities)
	case sum.Points != nil:
		p := sum.Points
		fmt.Fprintf(w, "%s  peak=%d ids=%t velocities=%t center=%v extents=%v\n",
			indent, p.PeakCount, p.HasIDs, p.HasVelocities, p.BoundsCenter, p.BoundsExtents)
	}
	for _, prop := range sc.Properties() {
		fmt.Fprintf(w, "%s  property %s %s len=%d\n", indent, prop.Name, prop.Type, prop.Len())
	}
}

// selectorFlags are shared by the commands that resolve one frame.
func selectorFlags() []cli.Flag {
	return []cli.Flag{
		&cli.Float64Flag{Name: "time", Aliases: []string{"t"}, Usage: "resolve at this time"},
		&cli.IntFlag{Name: "index", Aliases: []string{"i"}, Usage: "resolve this stored sample index instead of a time"},
	}
}

// resolveFrame loads the scene and resolves it once. Per-node failures are
// logged and do not abort the command.
func resolveFrame(c *cli.Context) (*scene.Scene, error) {
	s, err := loadScene(c)
	if err != nil {
		return nil, err
	}
	if c.IsSet("index") {
		i := c.Int("index")
		if i < 0 {
			return nil, fmt.Errorf("index must not be negative, got %d", i)
		}
		err = s.UpdateSelector(c.Context, sampling.IndexSelector(uint64(i)))
	} else {
		err = s.Update(c.Context, c.Float64("time"))
	}
	if err := c.Context.Err(); err != nil {
		return nil, err
	}
	if err != nil {
		logger.Warn("some nodes failed to resolve", zap.Error(err))
	}
	return s, nil
}

func sampleCommand() *cli.Command {
	return &cli.Command{
		Name:      "sample",
		Usage:     "resolve one frame and print the split summaries",
		ArgsUsage: "<cache.yaml>",
		Flags:     selectorFlags(),
		Action: func(c *cli.Context) error {
			s, err := resolveFrame(c)
			if err != nil {
				return err
			}
			w := c.App.Writer
			for _, sc := range s.Schemas() {
				printResolution(w, sc)
			}
			return nil
		},
	}
}

func printResolution(w io.Writer, sc scene.Schema) {
	r := sc.Resolution()
	fmt.Fprintf(w, "%s [%s] index=%d next=%d alpha=%.3f dirty=%t\n",
		sc.Path(), sc.Kind(), r.Index, r.NextIndex, r.Alpha, sc.Dirty())

	switch v := sc.(type) {
	case *scene.Xform:
		d := v.Data()
		fmt.Fprintf(w, "  translation=%v scale=%v\n", d.Translation, d.Scale)
	case *scene.Camera:
		d := v.Data()
		fmt.Fprintf(w, "  fov=%.2f aspect=%.3f near=%g far=%g\n",
			d.FieldOfView, d.AspectRatio, d.NearClippingPlane, d.FarClippingPlane)
	case *scene.PolyMesh:
		ss := v.SampleSummary()
		fmt.Fprintf(w, "  splits=%d submeshes=%d vertices=%d indices=%d topology_changed=%t\n",
			ss.SplitCount, ss.SubmeshCount, ss.VertexCount, ss.IndexCount, ss.TopologyChanged)
		for i, sp := range v.Splits() {
			fmt.Fprintf(w, "  split %d: submeshes=%d vertices=%d indices=%d center=%v size=%v\n",
				i, sp.SubmeshCount, sp.VertexCount, sp.IndexCount, sp.Bounds.Center(), sp.Bounds.Size())
		}
	case *scene.Points:
		if p := v.Sample(); p != nil {
			fmt.Fprintf(w, "  points=%d\n", p.Count())
		}
	}
}

func exportCommand() *cli.Command {
	flags := append(selectorFlags(),
		&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "output file (default from config)"},
		&cli.BoolFlag{Name: "binary", Usage: "write GLB instead of glTF JSON"},
		&cli.StringSliceFlag{Name: "hide", Usage: "node path to leave out (repeatable)"},
	)
	return &cli.Command{
		Name:      "export",
		Usage:     "write one resolved frame as glTF",
		ArgsUsage: "<cache.yaml>",
		Flags:     flags,
		Action: func(c *cli.Context) error {
			cfg := getState(c).cfg
			out := cfg.Export.Output
			if c.String("output") != "" {
				out = c.String("output")
			}
			binary := cfg.Export.Binary || c.Bool("binary")

			s, err := resolveFrame(c)
			if err != nil {
				return err
			}
			if hide := c.StringSlice("hide"); len(hide) > 0 {
				mask := make(map[string]bool, len(hide))
				for _, p := range hide {
					mask[p] = false
				}
				if err := s.ApplyEnabledMask(mask); err != nil {
					return err
				}
			}

			doc, stats, err := export.Frame(s)
			if err != nil {
				return err
			}
			if err := export.Save(doc, out, binary); err != nil {
				return fmt.Errorf("writing %s: %w", out, err)
			}
			fmt.Fprintf(c.App.Writer, "Wrote %s: %d nodes, %d meshes, %d primitives, %d points\n",
				out, stats.Nodes, stats.Meshes, stats.Primitives, stats.Points)
			return nil
		},
	}
}

func playCommand() *cli.Command {
	return &cli.Command{
		Name:      "play",
		Usage:     "step through the playback range and report what changes per frame",
		ArgsUsage: "<cache.yaml>",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "frames", Usage: "stop after this many frames (required with playback.loop)"},
		},
		Action: func(c *cli.Context) error {
			cfg := getState(c).cfg
			limit := c.Int("frames")
			if cfg.Playback.Loop && limit <= 0 {
				return errors.New("--frames is required when playback.loop is set")
			}

			s, err := loadScene(c)
			if err != nil {
				return err
			}
			start, end := s.StartTime(), s.EndTime()
			if cfg.Playback.Start != nil {
				start = *cfg.Playback.Start
			}
			if cfg.Playback.End != nil {
				end = *cfg.Playback.End
			}
			if end < start {
				return fmt.Errorf("playback range %.3f - %.3f is empty", start, end)
			}
			steps := int(math.Floor((end-start)*cfg.Playback.FPS+1e-9)) + 1

			w := c.App.Writer
			failed := 0
			for f := 0; limit <= 0 || f < limit; f++ {
				k := f
				if cfg.Playback.Loop {
					k = f % steps
				} else if f >= steps {
					break
				}
				t := start + float64(k)/cfg.Playback.FPS
				if err := s.Update(c.Context, t); err != nil {
					if ctxErr := c.Context.Err(); ctxErr != nil {
						return ctxErr
					}
					failed++
					logger.Warn("frame resolved with errors", zap.Int("frame", f), zap.Error(err))
				}
				dirty := 0
				for _, sc := range s.Schemas() {
					if sc.Dirty() {
						dirty++
					}
				}
				fmt.Fprintf(w, "frame %4d t=%.3f dirty=%d\n", f, t, dirty)
			}
			if failed > 0 {
				return fmt.Errorf("%d frames had node errors", failed)
			}
			return nil
		},
	}
}

func configCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "show or save the effective configuration",
		Subcommands: []*cli.Command{
			{
				Name:  "show",
				Usage: "print the effective configuration as YAML",
				Action: func(c *cli.Context) error {
					enc := yaml.NewEncoder(c.App.Writer)
					enc.SetIndent(2)
					if err := enc.Encode(getState(c).cfg); err != nil {
						return err
					}
					return enc.Close()
				},
			},
			{
				Name:      "save",
				Usage:     "write the effective configuration (default: user config dir)",
				ArgsUsage: "[path]",
				Action: func(c *cli.Context) error {
					cfg := getState(c).cfg
					if p := c.Args().First(); p != "" {
						return cfg.SaveTo(p)
					}
					return cfg.Save()
				},
			},
		},
	}
}
