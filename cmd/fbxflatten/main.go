// fbxflatten is a CLI utility for inspecting and converting FBX scenes
// into flattened, engine-ready meshes.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/muesli/termenv"
	"go.uber.org/zap"

	"github.com/Faultbox/fbxflatten/internal/assets"
	"github.com/Faultbox/fbxflatten/internal/config"
	"github.com/Faultbox/fbxflatten/internal/export/gltfexport"
	"github.com/Faultbox/fbxflatten/internal/importer"
	"github.com/Faultbox/fbxflatten/internal/logger"
	"github.com/Faultbox/fbxflatten/internal/watch"
	"github.com/Faultbox/fbxflatten/pkg/math"
	"github.com/Faultbox/fbxflatten/pkg/scene"
)

var out = termenv.NewOutput(os.Stdout)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "info":
		cmdInfo(args)
	case "nodes", "tree":
		cmdNodes(args)
	case "meshes":
		cmdMeshes(args)
	case "materials", "mats":
		cmdMaterials(args)
	case "export", "x":
		cmdExport(args)
	case "watch":
		cmdWatch(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Printf(`fbxflatten - FBX scene flattening utility

Usage:
  fbxflatten <command> [options] <file>

Commands:
  info <file>                Show scene summary
  nodes <file>               Print the node hierarchy
  meshes <file>              List flattened meshes
  materials <file>           List materials and their channels
  export <file> [output]     Write the flattened scene as glTF (.glb/.gltf)
  watch <file>               Re-import (and optionally export) on change

Supported inputs: %s

Common options:
  -config <path>             Config file (.yaml or .toml)
  -debug                     Enable debug logging
  -flip-winding, -flip-uvs   Post-process triangles and texture coordinates

Examples:
  fbxflatten info models/crate.fbxs.yaml
  fbxflatten export -format gltf -out build models/hero.fbxs.yaml
  fbxflatten watch -export models/hero.fbxs.yaml
`, strings.Join(importer.Extensions(), ", "))
}

// setup parses the command flags, loads the config and initializes logging.
func setup(fs *flag.FlagSet, args []string, usage string) *config.Config {
	fl := config.RegisterFlags(fs)
	fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Usage: fbxflatten %s\n", usage)
		os.Exit(1)
	}

	cfg, err := config.Load(fl)
	if err != nil {
		fatal(err)
	}
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fatal(err)
	}
	logger.Debug("config loaded",
		zap.String("command", fs.Name()),
		zap.String("format", cfg.Export.Format),
		zap.Bool("flip_winding", cfg.Flatten.FlipWinding),
		zap.Bool("flip_uvs", cfg.Flatten.FlipUVs))
	return cfg
}

func load(cfg *config.Config, path string) *scene.Scene {
	s, err := importer.LoadScene(path, importer.OptionsFromConfig(cfg))
	if err != nil {
		fatal(err)
	}
	return s
}

func fatal(err error) {
	logger.Sync()
	fmt.Fprintf(os.Stderr, "%s %v\n", out.String("Error:").Foreground(out.Color("1")).Bold(), err)
	os.Exit(1)
}

func header(s string) string {
	return out.String(s).Bold().String()
}

func faint(s string) string {
	return out.String(s).Faint().String()
}

func cmdInfo(args []string) {
	fs := flag.NewFlagSet("info", flag.ExitOnError)
	cfg := setup(fs, args, "info <file>")
	defer logger.Sync()

	path := fs.Arg(0)
	s := load(cfg, path)
	defer importer.FreeScene(s)

	var vertices, triangles, skinned int
	for i := range s.Meshes {
		m := &s.Meshes[i]
		vertices += m.VertexCount()
		triangles += m.TriangleCount()
		if m.IsSkinned {
			skinned++
		}
	}

	fmt.Println(header("Scene: " + path))
	fmt.Printf("Nodes:      %d\n", s.NodeCount())
	fmt.Printf("Meshes:     %d (%d skinned)\n", s.MeshCount(), skinned)
	fmt.Printf("Materials:  %d\n", s.MaterialCount())
	fmt.Printf("Animations: %d\n", len(s.Animations))
	fmt.Printf("Vertices:   %d\n", vertices)
	fmt.Printf("Triangles:  %d\n", triangles)

	if err := s.Validate(); err != nil {
		fmt.Printf("Validate:   %s\n", out.String(err.Error()).Foreground(out.Color("1")))
	} else {
		fmt.Printf("Validate:   %s\n", out.String("ok").Foreground(out.Color("2")))
	}
}

func cmdNodes(args []string) {
	fs := flag.NewFlagSet("nodes", flag.ExitOnError)
	matrices := fs.Bool("m", false, "Print node-to-world translation")
	cfg := setup(fs, args, "nodes [-m] <file>")
	defer logger.Sync()

	s := load(cfg, fs.Arg(0))
	defer importer.FreeScene(s)

	for _, line := range nodeTree(s, *matrices) {
		fmt.Println(line)
	}
}

// nodeTree renders the node hierarchy, one line per node, children
// indented below their parent in list order.
func nodeTree(s *scene.Scene, translations bool) []string {
	children := make(map[int32][]int, len(s.Nodes))
	for i := range s.Nodes {
		children[s.Nodes[i].ParentIndex] = append(children[s.Nodes[i].ParentIndex], i)
	}

	var lines []string
	var walk func(i, depth int)
	walk = func(i, depth int) {
		n := &s.Nodes[i]
		line := fmt.Sprintf("%s[%d] %s", strings.Repeat("  ", depth), i, n.Name)
		if len(n.MeshIndices) > 0 {
			line += fmt.Sprintf(" meshes=%v", n.MeshIndices)
		}
		if translations {
			t := n.NodeToWorld.Translation()
			line += fmt.Sprintf(" at (%.3f, %.3f, %.3f)", t.X, t.Y, t.Z)
		}
		lines = append(lines, line)
		for _, c := range children[int32(i)] {
			walk(c, depth+1)
		}
	}
	for _, root := range children[scene.NoParent] {
		walk(root, 0)
	}
	return lines
}

func cmdMeshes(args []string) {
	fs := flag.NewFlagSet("meshes", flag.ExitOnError)
	cfg := setup(fs, args, "meshes <file>")
	defer logger.Sync()

	s := load(cfg, fs.Arg(0))
	defer importer.FreeScene(s)

	fmt.Println(header(fmt.Sprintf("%-4s %-24s %8s %8s %-16s %5s %5s %5s", "#", "Name", "Verts", "Tris", "Material", "UVs", "Cols", "Bones")))
	for i := range s.Meshes {
		m := &s.Meshes[i]
		material := s.Materials[m.MaterialIndex].Name
		bones := faint("-")
		if m.IsSkinned {
			bones = fmt.Sprint(m.BoneCount())
		}
		fmt.Printf("%-4d %-24s %8d %8d %-16s %5d %5d %5s\n",
			i, m.Name, m.VertexCount(), m.TriangleCount(), material, len(m.UVs), len(m.Colors), bones)
		size := m.Bounds.Size()
		fmt.Println(faint(fmt.Sprintf("     bounds (%.3f, %.3f, %.3f)", size.X, size.Y, size.Z)))
	}
}

func cmdMaterials(args []string) {
	fs := flag.NewFlagSet("materials", flag.ExitOnError)
	all := fs.Bool("a", false, "Show channels without a texture or color")
	cfg := setup(fs, args, "materials [-a] <file>")
	defer logger.Sync()

	s := load(cfg, fs.Arg(0))
	defer importer.FreeScene(s)

	for i := range s.Materials {
		m := &s.Materials[i]
		fmt.Println(header(fmt.Sprintf("[%d] %s", i, m.Name)))
		for k := scene.ChannelKind(0); k < scene.NumChannels; k++ {
			ch := m.Channel(k)
			if !*all && !ch.HasTexture() && ch.Color == (math.Vec4{}) {
				continue
			}
			c := ch.Color
			line := fmt.Sprintf("  %-20s (%.2f, %.2f, %.2f, %.2f)", k, c.X, c.Y, c.Z, c.W)
			if ch.HasTexture() {
				line += fmt.Sprintf(" %s [%s/%s]", ch.TexturePath, ch.WrapU, ch.WrapV)
			}
			fmt.Println(line)
		}
	}
}

func cmdExport(args []string) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	cfg := setup(fs, args, "export [options] <file> [output]")
	defer logger.Sync()

	source := fs.Arg(0)
	target := gltfexport.OutputPath(source, cfg.Export.OutputDir, cfg.Export.Format)
	format := cfg.Export.Format
	if fs.NArg() > 1 {
		target = fs.Arg(1)
		format = gltfexport.FormatForPath(target)
	}

	s := load(cfg, source)
	defer importer.FreeScene(s)

	if err := gltfexport.WriteFile(s, target, format); err != nil {
		fatal(err)
	}
	logger.Info("exported", zap.String("source", source), zap.String("target", target), zap.String("format", format))
	fmt.Printf("Exported: %s (%d meshes, %d nodes)\n", target, s.MeshCount(), s.NodeCount())
}

func cmdWatch(args []string) {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	export := fs.Bool("export", false, "Export after every successful import")
	cfg := setup(fs, args, "watch [-export] <file>")
	defer logger.Sync()

	source := fs.Arg(0)
	target := gltfexport.OutputPath(source, cfg.Export.OutputDir, cfg.Export.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cache := assets.NewCache()
	defer cache.Clear()
	w := watch.New(source, time.Duration(cfg.Watch.DebounceMs)*time.Millisecond,
		watch.Cached(cache, watch.ImportLoader(importer.OptionsFromConfig(cfg))))

	err := w.Run(ctx, func(r watch.Result) {
		stamp := faint(time.Now().Format("15:04:05"))
		if r.Err != nil {
			fmt.Printf("%s %s %v\n", stamp, out.String("FAIL").Foreground(out.Color("1")), r.Err)
			return
		}
		defer importer.FreeScene(r.Scene)

		fmt.Printf("%s %s %d meshes, %d nodes in %s\n", stamp,
			out.String("OK").Foreground(out.Color("2")),
			r.Scene.MeshCount(), r.Scene.NodeCount(), r.Elapsed.Round(time.Millisecond))
		if *export {
			if err := gltfexport.WriteFile(r.Scene, target, cfg.Export.Format); err != nil {
				fmt.Printf("%s %s %v\n", stamp, out.String("FAIL").Foreground(out.Color("1")), err)
				return
			}
			fmt.Printf("%s exported %s\n", stamp, target)
		}
	})
	if err != nil {
		fatal(err)
	}
}
