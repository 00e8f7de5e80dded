package build

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/stackfn-io/stackfn/internal/logging"
	"github.com/stackfn-io/stackfn/internal/registry"
)

// LocalBuilder bundles zip-packaged runtimes by shelling out to the
// runtime's toolchain and zipping the output directory.
type LocalBuilder struct {
	Root     string // project root containing function sources
	OutDir   string // scratch directory for bundles
	Registry *registry.Registry
}

func NewLocalBuilder(root string, reg *registry.Registry) *LocalBuilder {
	return &LocalBuilder{
		Root:     root,
		OutDir:   filepath.Join(root, ".stackfn", "artifacts"),
		Registry: reg,
	}
}

func (b *LocalBuilder) Build(ctx context.Context, addr string, kind Kind) (*Result, error) {
	spec, ok := b.Registry.Lookup(addr)
	if !ok {
		return nil, &Error{Addr: addr, Messages: []string{"function was never registered"}}
	}

	bundleDir := filepath.Join(b.OutDir, sanitizeAddr(addr))
	if err := os.MkdirAll(bundleDir, 0o755); err != nil {
		return nil, &Error{Addr: addr, Messages: []string{err.Error()}}
	}

	if spec.Hooks != nil {
		if msgs := b.runHooks(ctx, spec.Hooks.Before, bundleDir); msgs != nil {
			return nil, &Error{Addr: addr, Messages: msgs}
		}
	}

	cmd, err := b.toolchainCommand(ctx, spec.Runtime, spec.Handler, bundleDir)
	if err != nil {
		return nil, &Error{Addr: addr, Messages: []string{err.Error()}}
	}
	logging.Debug("bundling function", "address", addr, "runtime", spec.Runtime, "kind", string(kind))
	if out, err := cmd.CombinedOutput(); err != nil {
		msgs := strings.Split(strings.TrimSpace(string(out)), "\n")
		msgs = append(msgs, err.Error())
		return nil, &Error{Addr: addr, Messages: msgs}
	}

	if spec.Hooks != nil {
		if msgs := b.runHooks(ctx, spec.Hooks.After, bundleDir); msgs != nil {
			return nil, &Error{Addr: addr, Messages: msgs}
		}
	}

	zipPath := bundleDir + ".zip"
	if err := zipDirectory(bundleDir, zipPath); err != nil {
		return nil, &Error{Addr: addr, Messages: []string{err.Error()}}
	}

	return &Result{Out: zipPath, Handler: bundledHandler(spec.Runtime, spec.Handler)}, nil
}

// toolchainCommand picks the bundling command for a runtime family.
func (b *LocalBuilder) toolchainCommand(ctx context.Context, runtime, handler, outDir string) (*exec.Cmd, error) {
	var cmd *exec.Cmd
	switch {
	case strings.HasPrefix(runtime, "nodejs"):
		entry, err := findEntryFile(b.Root, handler, []string{".ts", ".tsx", ".js", ".mjs", ".cjs"})
		if err != nil {
			return nil, err
		}
		cmd = exec.CommandContext(ctx, "npx", "esbuild", entry,
			"--bundle", "--platform=node", "--target=node20",
			"--outfile="+filepath.Join(outDir, "index.js"))
	case strings.HasPrefix(runtime, "python"):
		entry, err := findEntryFile(b.Root, handler, []string{".py"})
		if err != nil {
			return nil, err
		}
		srcDir := filepath.Dir(entry)
		cmd = exec.CommandContext(ctx, "cp", "-R", srcDir+string(filepath.Separator)+".", outDir)
	case strings.HasPrefix(runtime, "go") || strings.HasPrefix(runtime, "provided"):
		pkgDir := filepath.Join(b.Root, filepath.Dir(handler))
		cmd = exec.CommandContext(ctx, "go", "build", "-o", filepath.Join(outDir, "bootstrap"), "./"+filepath.ToSlash(pkgDir))
		cmd.Env = append(os.Environ(), "GOOS=linux", "CGO_ENABLED=0")
	default:
		return nil, fmt.Errorf("unsupported runtime %q", runtime)
	}
	cmd.Dir = b.Root
	return cmd, nil
}

// runHooks executes shell hooks, returning collected output on failure.
func (b *LocalBuilder) runHooks(ctx context.Context, hooks []string, outDir string) []string {
	for _, hook := range hooks {
		cmd := exec.CommandContext(ctx, "sh", "-c", hook)
		cmd.Dir = b.Root
		cmd.Env = append(os.Environ(), "STACKFN_OUT_DIR="+outDir)
		if out, err := cmd.CombinedOutput(); err != nil {
			msgs := strings.Split(strings.TrimSpace(string(out)), "\n")
			return append(msgs, fmt.Sprintf("hook %q failed: %v", hook, err))
		}
	}
	return nil
}

// bundledHandler maps the declared handler to its location inside the
// bundle. Node bundles always collapse to index.js; compiled runtimes use
// the bootstrap convention; python keeps the declared module path.
func bundledHandler(runtime, handler string) string {
	switch {
	case strings.HasPrefix(runtime, "nodejs"):
		parts := strings.Split(handler, ".")
		return "index." + parts[len(parts)-1]
	case strings.HasPrefix(runtime, "go"), strings.HasPrefix(runtime, "provided"):
		return "bootstrap"
	default:
		return handler
	}
}

// findEntryFile resolves a handler locator ("src/main.handler") to the
// source file it names, trying each extension.
func findEntryFile(root, handler string, exts []string) (string, error) {
	idx := strings.LastIndex(handler, ".")
	if idx <= 0 {
		return "", fmt.Errorf("invalid handler %q: expected path.export", handler)
	}
	base := handler[:idx]
	for _, ext := range exts {
		candidate := base + ext
		if _, err := os.Stat(filepath.Join(root, candidate)); err == nil {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("no source file found for handler %q", handler)
}

func sanitizeAddr(addr string) string {
	return strings.ReplaceAll(addr, ".", "-")
}

// zipDirectory writes the contents of dir into a zip at zipPath.
func zipDirectory(dir, zipPath string) error {
	f, err := os.Create(zipPath)
	if err != nil {
		return fmt.Errorf("failed to create archive: %w", err)
	}
	defer f.Close()

	w := zip.NewWriter(f)
	defer w.Close()

	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		entry, err := w.Create(filepath.ToSlash(rel))
		if err != nil {
			return err
		}
		src, err := os.Open(path)
		if err != nil {
			return err
		}
		defer src.Close()
		_, err = io.Copy(entry, src)
		return err
	})
}
