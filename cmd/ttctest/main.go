package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/schollz/progressbar/v3"
)

type Execution struct {
	Stdout   string        `json:"stdout,omitempty"`
	Stderr   string        `json:"stderr"`
	ExitCode int           `json:"exitCode"`
	Duration time.Duration `json:"duration"`
	TimedOut bool          `json:"timed_out"`
}

// TargetResult is what a golden file records for one source file.
type TargetResult struct {
	Compile        Execution  `json:"compile"`
	Assembly       string     `json:"assembly,omitempty"`
	AssemblyHash   string     `json:"assembly_hash,omitempty"`
	UnstableOutput bool       `json:"unstable_output,omitempty"`
	Run            *Execution `json:"run,omitempty"`
}

type FileTestResult struct {
	File      string        `json:"file"`
	Status    string        `json:"status"` // PASS, FAIL, SKIP, ERROR
	Message   string        `json:"message,omitempty"`
	Diff      string        `json:"diff,omitempty"`
	Reference *TargetResult `json:"reference,omitempty"`
	Target    *TargetResult `json:"target,omitempty"`
}

type TestSuiteResults map[string]*FileTestResult

var (
	targetCompiler = flag.String("target-compiler", "./ttc", "Path to the compiler to test.")
	targetArgs     = flag.String("target-args", "", "Extra arguments for the compiler (space-separated).")
	generateGolden = flag.String("generate-golden", "", "Generate a golden .json file for a given source file.")
	testFiles      = flag.String("test-files", "tests/*.c", "Glob pattern(s) for files to test (space-separated).")
	skipFiles      = flag.String("skip-files", "", "Files to skip (space-separated).")
	outputJSON     = flag.String("output", ".test_results.json", "Output file for the JSON test report.")
	timeout        = flag.Duration("timeout", 5*time.Second, "Timeout for each command execution.")
	jobs           = flag.Int("j", 4, "Number of parallel test jobs.")
	runBinaries    = flag.Bool("run", false, "Also link each program with 'cc' and compare its exit status.")
	verbose        = flag.Bool("v", false, "Enable verbose logging.")
	jsonDir        = flag.String("dir", "", "Directory to store/read golden JSON files (defaults to source file dir).")
)

const (
	cRed    = "\x1b[91m"
	cYellow = "\x1b[93m"
	cGreen  = "\x1b[92m"
	cCyan   = "\x1b[96m"
	cBold   = "\x1b[1m"
	cNone   = "\x1b[0m"
)

func main() {
	flag.Parse()
	log.SetFlags(0)

	tempDir, err := os.MkdirTemp("", "ttctest-*")
	if err != nil {
		log.Fatalf("%s[ERROR]%s Failed to create temp directory: %v\n", cRed, cNone, err)
	}
	defer os.RemoveAll(tempDir)
	setupInterruptHandler(tempDir)

	if *generateGolden != "" {
		handleGenerateGolden(*generateGolden, tempDir)
		return
	}

	if handleRunTestSuite(tempDir) {
		os.RemoveAll(tempDir)
		os.Exit(1)
	}
}

func setupInterruptHandler(tempDir string) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)
	go func() {
		<-c
		os.RemoveAll(tempDir)
		fmt.Printf("\n%s[INTERRUPT]%s Test run cancelled. Cleaning up...\n", cYellow, cNone)
		os.Exit(1)
	}()
}

func getJSONPath(sourceFile string) string {
	jsonFileName := "." + filepath.Base(sourceFile) + ".json"
	if *jsonDir != "" {
		return filepath.Join(*jsonDir, jsonFileName)
	}
	return filepath.Join(filepath.Dir(sourceFile), jsonFileName)
}

// hashFile computes the xxhash of a file's content
func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := xxhash.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", h.Sum64()), nil
}

func handleGenerateGolden(sourceFile, tempDir string) {
	log.Printf("Generating golden file for %s...\n", sourceFile)

	fileHash, err := hashFile(sourceFile)
	if err != nil {
		log.Fatalf("%s[ERROR]%s Could not hash source file %s: %v\n", cRed, cNone, sourceFile, err)
	}

	result := compileTwice(sourceFile, tempDir, fileHash)
	if result.UnstableOutput {
		log.Fatalf("%s[ERROR]%s %s compiles to different output on each run, refusing to record it\n", cRed, cNone, sourceFile)
	}

	jsonData, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		log.Fatalf("%s[ERROR]%s Failed to marshal golden data to JSON: %v\n", cRed, cNone, err)
	}

	goldenFileName := getJSONPath(sourceFile)
	if *jsonDir != "" {
		if err := os.MkdirAll(*jsonDir, 0755); err != nil {
			log.Fatalf("%s[ERROR]%s Failed to create directory %s: %v\n", cRed, cNone, *jsonDir, err)
		}
	}
	if err := os.WriteFile(goldenFileName, jsonData, 0644); err != nil {
		log.Fatalf("%s[ERROR]%s Failed to write golden file %s: %v\n", cRed, cNone, goldenFileName, err)
	}

	log.Printf("%s[SUCCESS]%s Golden file created at %s\n", cGreen, cNone, goldenFileName)
}

// handleRunTestSuite reports whether any file failed.
func handleRunTestSuite(tempDir string) bool {
	files, err := expandGlobPatterns(*testFiles)
	if err != nil {
		log.Fatalf("%s[ERROR]%s Invalid glob pattern(s): %v\n", cRed, cNone, err)
	}
	if len(files) == 0 {
		log.Println("No test files found matching the pattern(s).")
		return false
	}

	skipList := make(map[string]bool)
	for _, f := range strings.Fields(*skipFiles) {
		skipList[f] = true
	}

	tasks := make(chan [2]string, len(files))
	resultsChan := make(chan *FileTestResult, len(files))
	var wg sync.WaitGroup

	for range max(*jobs, 1) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for task := range tasks {
				resultsChan <- testFile(task[0], tempDir, task[1])
			}
		}()
	}

	// Feed the tasks channel, skipping files with identical content
	seenHashes := make(map[string]string)
	for _, file := range files {
		if skipList[file] {
			resultsChan <- &FileTestResult{File: file, Status: "SKIP", Message: "Explicitly skipped"}
			continue
		}
		fileHash, err := hashFile(file)
		if err != nil {
			resultsChan <- &FileTestResult{File: file, Status: "ERROR", Message: fmt.Sprintf("Failed to read file for hashing: %v", err)}
			continue
		}
		if originalFile, seen := seenHashes[fileHash]; seen {
			resultsChan <- &FileTestResult{File: file, Status: "SKIP", Message: fmt.Sprintf("Content is identical to %s", originalFile)}
			continue
		}
		seenHashes[fileHash] = file
		tasks <- [2]string{file, fileHash}
	}
	close(tasks)

	go func() {
		wg.Wait()
		close(resultsChan)
	}()

	bar := progressbar.Default(int64(len(files)), "testing")
	var allResults []*FileTestResult
	for result := range resultsChan {
		allResults = append(allResults, result)
		bar.Add(1)
	}
	bar.Close()

	sort.Slice(allResults, func(i, j int) bool {
		return allResults[i].File < allResults[j].File
	})

	printSummary(allResults)
	writeJSONReport(allResults)

	for _, r := range allResults {
		if r.Status == "FAIL" || r.Status == "ERROR" {
			return true
		}
	}
	return false
}

func testFile(file, tempDir, fileHash string) *FileTestResult {
	goldenFile := getJSONPath(file)
	goldenData, err := os.ReadFile(goldenFile)
	if errors.Is(err, os.ErrNotExist) {
		return &FileTestResult{File: file, Status: "SKIP", Message: "No golden file, create one with --generate-golden"}
	}
	if err != nil {
		return &FileTestResult{File: file, Status: "ERROR", Message: fmt.Sprintf("Could not read golden file %s: %v", goldenFile, err)}
	}
	var golden TargetResult
	if err := json.Unmarshal(goldenData, &golden); err != nil {
		return &FileTestResult{File: file, Status: "ERROR", Message: fmt.Sprintf("Could not parse golden file %s: %v", goldenFile, err)}
	}

	target := compileTwice(file, tempDir, fileHash)
	return compareResults(file, &golden, target)
}

func compareResults(file string, golden, target *TargetResult) *FileTestResult {
	res := &FileTestResult{File: file, Reference: golden, Target: target}
	if target.UnstableOutput {
		res.Status, res.Message = "FAIL", "Compiler output differs between two runs on the same input"
		return res
	}

	// Runs are only compared when both sides have one; --run is optional.
	ignore := cmpopts.IgnoreFields(Execution{}, "Duration")
	goldenCmp, targetCmp := *golden, *target
	if goldenCmp.Run == nil || targetCmp.Run == nil {
		goldenCmp.Run, targetCmp.Run = nil, nil
	}
	if diff := cmp.Diff(goldenCmp, targetCmp, ignore); diff != "" {
		res.Status, res.Message, res.Diff = "FAIL", "Compiler result differs from golden file", diff
		return res
	}

	res.Status, res.Message = "PASS", "Output matches golden file"
	return res
}

// compileTwice compiles sourceFile two times and records whether the
// assembly was byte-identical.
func compileTwice(sourceFile, tempDir, fileHash string) *TargetResult {
	var outputs [2][]byte
	var result *TargetResult
	for i := range outputs {
		asmPath := filepath.Join(tempDir, fmt.Sprintf("%s-%d.s", fileHash, i))
		ex, asmText := compile(sourceFile, asmPath)
		outputs[i] = asmText
		if i == 0 {
			result = &TargetResult{Compile: ex}
		}
	}

	if !bytes.Equal(outputs[0], outputs[1]) {
		result.UnstableOutput = true
	}
	if result.Compile.ExitCode != 0 {
		return result
	}

	result.Assembly = string(outputs[0])
	result.AssemblyHash = fmt.Sprintf("%x", xxhash.Sum64(outputs[0]))

	if *runBinaries {
		binPath := filepath.Join(tempDir, fileHash+".bin")
		ctx, cancel := context.WithTimeout(context.Background(), *timeout)
		defer cancel()
		link := executeCommand(ctx, "cc", "-o", binPath, filepath.Join(tempDir, fileHash+"-0.s"))
		if link.ExitCode != 0 {
			result.Run = &link
			return result
		}
		runCtx, runCancel := context.WithTimeout(context.Background(), *timeout)
		defer runCancel()
		run := executeCommand(runCtx, binPath)
		result.Run = &run
	}
	return result
}

func compile(sourceFile, asmPath string) (Execution, []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	args := []string{"-q", "-o", asmPath}
	args = append(args, strings.Fields(*targetArgs)...)
	args = append(args, sourceFile)

	result := executeCommand(ctx, *targetCompiler, args...)
	if *verbose {
		log.Printf("[%s] %s %s -> exit %d", sourceFile, *targetCompiler, strings.Join(args, " "), result.ExitCode)
	}
	if result.ExitCode != 0 {
		return result, nil
	}
	asmText, err := os.ReadFile(asmPath)
	if err != nil {
		result.ExitCode = -2
		result.Stderr += "\nCould not read assembly: " + err.Error()
	}
	return result, asmText
}

// executeCommand runs a command with a timeout and captures its output
func executeCommand(ctx context.Context, command string, args ...string) Execution {
	startTime := time.Now()
	cmd := exec.CommandContext(ctx, command, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	execResult := Execution{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(startTime),
	}

	var exitErr *exec.ExitError
	switch {
	case ctx.Err() == context.DeadlineExceeded:
		execResult.TimedOut = true
		execResult.ExitCode = -1
	case errors.As(err, &exitErr):
		execResult.ExitCode = exitErr.ExitCode()
	case err != nil:
		execResult.ExitCode = -2
		execResult.Stderr += "\nExecution error: " + err.Error()
	}
	return execResult
}

func printSummary(results []*FileTestResult) {
	var passed, failed, skipped, errored int
	for _, result := range results {
		if result.Status == "SKIP" && !*verbose {
			skipped++
			continue
		}
		fmt.Println("----------------------------------------------------------------------")
		fmt.Printf("Testing %s%s%s...\n", cCyan, result.File, cNone)

		switch result.Status {
		case "PASS":
			passed++
			fmt.Printf("  [%sPASS%s] %s\n", cGreen, cNone, result.Message)
			if *verbose && result.Target != nil {
				fmt.Printf("  compile: %s\n", result.Target.Compile.Duration)
			}
		case "FAIL":
			failed++
			fmt.Printf("  [%sFAIL%s] %s\n", cRed, cNone, result.Message)
			fmt.Println(formatDiff(result.Diff))
		case "SKIP":
			skipped++
			fmt.Printf("  [%sSKIP%s] %s\n", cYellow, cNone, result.Message)
		case "ERROR":
			errored++
			fmt.Printf("  [%sERROR%s] %s\n", cRed, cNone, result.Message)
		}
	}

	fmt.Println("----------------------------------------------------------------------")
	fmt.Printf("%sTest Summary:%s %s%d Passed%s, %s%d Failed%s, %s%d Skipped%s, %s%d Errored%s, %d Total\n",
		cBold, cNone, cGreen, passed, cNone, cRed, failed, cNone, cYellow, skipped, cNone, cRed, errored, cNone, len(results))
}

func formatDiff(diff string) string {
	if diff == "" {
		return ""
	}
	var builder strings.Builder
	builder.WriteString("    --- Diff ---\n")
	for _, line := range strings.Split(diff, "\n") {
		trimmedLine := strings.TrimSpace(line)
		if strings.HasPrefix(trimmedLine, "-") {
			builder.WriteString(cRed)
		} else if strings.HasPrefix(trimmedLine, "+") {
			builder.WriteString(cGreen)
		}
		builder.WriteString("    " + line)
		builder.WriteString(cNone)
		builder.WriteString("\n")
	}
	return builder.String()
}

func writeJSONReport(results []*FileTestResult) {
	resultsMap := make(TestSuiteResults, len(results))
	for _, r := range results {
		resultsMap[r.File] = r
	}

	jsonData, err := json.MarshalIndent(resultsMap, "", "  ")
	if err != nil {
		log.Printf("%s[ERROR]%s Failed to marshal results to JSON: %v\n", cRed, cNone, err)
		return
	}

	outputFile := *outputJSON
	if *jsonDir != "" {
		if err := os.MkdirAll(*jsonDir, 0755); err != nil {
			log.Printf("%s[ERROR]%s Failed to create dir %s: %v\n", cRed, cNone, *jsonDir, err)
		}
		outputFile = filepath.Join(*jsonDir, *outputJSON)
	}

	if err := os.WriteFile(outputFile, jsonData, 0644); err != nil {
		log.Printf("%s[ERROR]%s Failed to write JSON report to %s: %v\n", cRed, cNone, outputFile, err)
		return
	}
	if *verbose {
		log.Printf("Test report written to %s\n", outputFile)
	}
}

func expandGlobPatterns(patterns string) ([]string, error) {
	var files []string
	seen := make(map[string]bool)
	for _, pattern := range strings.Fields(patterns) {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("bad pattern '%s': %w", pattern, err)
		}
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				files = append(files, m)
			}
		}
	}
	return files, nil
}
