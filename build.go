//go:build ignore

// build.go - abrsqol build script
// Usage: go run build.go [-target=TARGET] [-v]
// Targets: all, qol-server, qol-invert, qol-testdata, test, clean, release

package main

import (
	"flag"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

const module = "abrsqol"

// BuildContext holds configuration for the build process
type BuildContext struct {
	Verbose bool
	GOOS    string
	GOARCH  string
	OutDir  string
}

var (
	distDir = "dist"

	// Commands under ./cmd
	executables = []string{"qol-server", "qol-invert", "qol-testdata"}

	// Release platforms as GOOS/GOARCH
	platforms = []string{"linux/amd64", "linux/arm64", "darwin/arm64", "windows/amd64"}

	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorBlue   = "\033[34m"
	colorCyan   = "\033[36m"
	colorYellow = "\033[33m"
)

func main() {
	target := flag.String("target", "all", "Build target")
	verbose := flag.Bool("v", false, "Verbose output")
	flag.Parse()

	printHeader()
	startTime := time.Now()

	ctx := &BuildContext{
		Verbose: *verbose,
		GOOS:    runtime.GOOS,
		GOARCH:  runtime.GOARCH,
		OutDir:  distDir,
	}

	var err error
	switch *target {
	case "all":
		err = buildAll(ctx)
	case "qol-server", "qol-invert", "qol-testdata":
		err = buildExecutable(*target, ctx)
	case "test":
		err = runTests(ctx.Verbose)
	case "clean":
		err = os.RemoveAll(distDir)
	case "release":
		err = buildRelease(ctx)
	default:
		showHelp()
		os.Exit(1)
	}
	if err != nil {
		printError(err.Error())
		os.Exit(1)
	}

	printSuccess(fmt.Sprintf("Build completed in %s", time.Since(startTime).Round(time.Millisecond)))
}

func printHeader() {
	fmt.Println(colorCyan + "===========================================" + colorReset)
	fmt.Println(colorCyan + "        abrsqol - Build System             " + colorReset)
	fmt.Println(colorCyan + "===========================================" + colorReset)
	fmt.Println()
}

func printInfo(msg string) {
	fmt.Printf("%s[INFO]%s %s\n", colorBlue, colorReset, msg)
}

func printSuccess(msg string) {
	fmt.Printf("%s[SUCCESS]%s %s\n", colorGreen, colorReset, msg)
}

func printError(msg string) {
	fmt.Printf("%s[ERROR]%s %s\n", colorRed, colorReset, msg)
}

func printWarning(msg string) {
	fmt.Printf("%s[WARNING]%s %s\n", colorYellow, colorReset, msg)
}

func buildAll(ctx *BuildContext) error {
	printInfo("Building all commands...")
	for _, name := range executables {
		if err := buildExecutable(name, ctx); err != nil {
			return err
		}
	}
	return nil
}

// ldflags stamps the build metadata into pkg/contracts.
func ldflags() string {
	pkg := module + "/pkg/contracts"
	flags := []string{
		"-s", "-w",
		fmt.Sprintf("-X %s.BuildTime=%s", pkg, time.Now().UTC().Format(time.RFC3339)),
	}
	if commit := gitOutput("rev-parse", "--short", "HEAD"); commit != "" {
		flags = append(flags, fmt.Sprintf("-X %s.GitCommit=%s", pkg, commit))
	}
	if branch := gitOutput("rev-parse", "--abbrev-ref", "HEAD"); branch != "" {
		flags = append(flags, fmt.Sprintf("-X %s.GitBranch=%s", pkg, branch))
	}
	return strings.Join(flags, " ")
}

func gitOutput(args ...string) string {
	out, err := exec.Command("git", args...).Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}

func buildExecutable(name string, ctx *BuildContext) error {
	exeName := name
	if ctx.GOOS == "windows" {
		exeName += ".exe"
	}
	outputPath := filepath.Join(ctx.OutDir, exeName)
	printInfo(fmt.Sprintf("Building %s for %s/%s...", name, ctx.GOOS, ctx.GOARCH))

	args := []string{"build", "-trimpath", "-ldflags", ldflags(), "-o", outputPath, "./cmd/" + name}
	if ctx.Verbose {
		args = append([]string{"build", "-v"}, args[1:]...)
		fmt.Printf("go %s\n", strings.Join(args, " "))
	}

	cmd := exec.Command("go", args...)
	cmd.Env = append(os.Environ(), "CGO_ENABLED=0", "GOOS="+ctx.GOOS, "GOARCH="+ctx.GOARCH)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to build %s: %w", name, err)
	}

	if info, err := os.Stat(outputPath); err == nil {
		printSuccess(fmt.Sprintf("Built %s (%.1f MB)", outputPath, float64(info.Size())/1024/1024))
	}
	return nil
}

func runTests(verbose bool) error {
	printInfo("Running Go tests...")
	args := []string{"test", "-race"}
	if verbose {
		args = append(args, "-v")
	}
	args = append(args, "./...")

	cmd := exec.Command("go", args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("go tests failed: %w", err)
	}
	printSuccess("All tests passed")
	return nil
}

// buildRelease cross-compiles every command into dist/<os>_<arch>/.
func buildRelease(ctx *BuildContext) error {
	printInfo("Building release version...")
	if err := os.RemoveAll(distDir); err != nil {
		printWarning(fmt.Sprintf("Failed to clean %s: %v", distDir, err))
	}

	for _, p := range platforms {
		goos, goarch, _ := strings.Cut(p, "/")
		release := &BuildContext{
			Verbose: ctx.Verbose,
			GOOS:    goos,
			GOARCH:  goarch,
			OutDir:  filepath.Join(distDir, goos+"_"+goarch),
		}
		if err := buildAll(release); err != nil {
			return err
		}
	}

	content := fmt.Sprintf("abrsqol\nBuilt: %s\n", time.Now().Format("2006-01-02 15:04:05"))
	if err := os.WriteFile(filepath.Join(distDir, "VERSION.txt"), []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write version file: %w", err)
	}
	printSuccess("Release build completed")
	return nil
}

func showHelp() {
	fmt.Println("Usage: go run build.go [-target=TARGET] [-v]")
	fmt.Println()
	fmt.Println("Targets:")
	fmt.Println("  all           Build qol-server, qol-invert and qol-testdata (default)")
	fmt.Println("  qol-server    Build the HTTP server")
	fmt.Println("  qol-invert    Build the command line inverter")
	fmt.Println("  qol-testdata  Build the synthetic data generator")
	fmt.Println("  test          Run go test -race ./...")
	fmt.Println("  clean         Remove dist/")
	fmt.Println("  release       Cross-compile all commands into dist/<os>_<arch>/")
}
