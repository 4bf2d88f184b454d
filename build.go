//go:build ignore

// build.go - dashboard build system
// Usage: go run build.go [-target=TARGET] [-v]
// Targets: all, web, report, test, clean, release

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

	"github.com/fatih/color"
)

const module = "unidash"

var (
	distDir = "dist"

	// source dir under cmd/ -> output name
	executables = map[string]string{
		"web":    "unidash",
		"report": "unidash-report",
	}

	releasePlatforms = []string{"linux/amd64", "linux/arm64", "darwin/arm64", "windows/amd64"}
)

func main() {
	target := flag.String("target", "all", "Build target")
	verbose := flag.Bool("v", false, "Verbose output")
	flag.Parse()

	color.New(color.FgCyan).Println("=== University Admissions Dashboard - Build ===")

	start := time.Now()
	var err error
	switch *target {
	case "all":
		err = buildAll(*verbose)
	case "web", "report":
		err = buildExecutable(*target, runtime.GOOS, runtime.GOARCH, *verbose)
	case "test":
		err = runTests(*verbose)
	case "clean":
		err = os.RemoveAll(distDir)
	case "release":
		err = buildRelease(*verbose)
	default:
		showHelp()
		os.Exit(1)
	}
	if err != nil {
		printError(err.Error())
		os.Exit(1)
	}

	printSuccess(fmt.Sprintf("Build completed in %s", time.Since(start).Round(time.Millisecond)))
}

func printInfo(msg string) {
	fmt.Printf("%s %s\n", color.BlueString("[INFO]"), msg)
}

func printSuccess(msg string) {
	fmt.Printf("%s %s\n", color.GreenString("[SUCCESS]"), msg)
}

func printError(msg string) {
	fmt.Printf("%s %s\n", color.RedString("[ERROR]"), msg)
}

func buildAll(verbose bool) error {
	if err := runTests(verbose); err != nil {
		return err
	}
	for name := range executables {
		if err := buildExecutable(name, runtime.GOOS, runtime.GOARCH, verbose); err != nil {
			return err
		}
	}
	return nil
}

func buildExecutable(name, goos, goarch string, verbose bool) error {
	out := executables[name]
	if goos == "windows" {
		out += ".exe"
	}
	outputPath := filepath.Join(distDir, goos+"_"+goarch, out)

	printInfo(fmt.Sprintf("Building %s for %s/%s...", name, goos, goarch))

	ldflags := fmt.Sprintf("-s -w -X %s/internal/app.BuildTime=%s", module, time.Now().UTC().Format(time.RFC3339))
	args := []string{"build", "-trimpath", "-ldflags", ldflags, "-o", outputPath, "./cmd/" + name}
	if verbose {
		args = append([]string{"build", "-v"}, args[1:]...)
	}

	cmd := exec.Command("go", args...)
	cmd.Env = append(os.Environ(), "GOOS="+goos, "GOARCH="+goarch, "CGO_ENABLED=0")
	cmd.Stderr = os.Stderr
	if verbose {
		fmt.Printf("go %s\n", strings.Join(args, " "))
		cmd.Stdout = os.Stdout
	}
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

func buildRelease(verbose bool) error {
	if err := os.RemoveAll(distDir); err != nil {
		return err
	}
	for _, platform := range releasePlatforms {
		goos, goarch, _ := strings.Cut(platform, "/")
		for name := range executables {
			if err := buildExecutable(name, goos, goarch, verbose); err != nil {
				return err
			}
		}
	}
	return nil
}

func showHelp() {
	fmt.Println("Usage: go run build.go -target=<target> [-v]")
	fmt.Println()
	fmt.Println("Targets:")
	fmt.Println("  all      run tests, then build web and report for this platform")
	fmt.Println("  web      build the dashboard server")
	fmt.Println("  report   build the terminal report tool")
	fmt.Println("  test     run go test -race ./...")
	fmt.Println("  clean    remove dist/")
	fmt.Println("  release  cross-compile every executable for " + strings.Join(releasePlatforms, ", "))
}
