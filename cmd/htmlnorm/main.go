package main

import (
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"regexp"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/djherbis/atime"
	humanize "github.com/dustin/go-humanize"
	"github.com/matryer/try"
	"github.com/tdewolff/argp"
	"github.com/tdewolff/htmlnorm"
	"github.com/tdewolff/htmlnorm/html"
)

// Version is the current htmlnorm version.
var Version = "built from source"

var extMap = map[string]string{
	"asp":        "text/asp",
	"ejs":        "text/x-ejs-template",
	"gohtml":     "text/x-go-template",
	"handlebars": "text/x-handlebars-template",
	"htm":        "text/html",
	"html":       "text/html",
	"mustache":   "text/x-mustache-template",
	"php":        "application/x-httpd-php",
	"tmpl":       "text/x-go-template",
}

var (
	hidden             bool
	list               bool
	m                  *htmlnorm.M
	matches            []string
	matchesRegexp      []*regexp.Regexp
	recursive          bool
	quiet              bool
	verbose            int
	version            bool
	watch              bool
	preserve           []string
	preserveMode       bool
	preserveOwnership  bool
	preserveTimestamps bool
	mimetype           string
)

type Matches struct {
	matches *[]string
}

func (scanner Matches) Scan(s []string) (int, error) {
	n := 0
	for _, item := range s {
		if strings.HasPrefix(item, "-") {
			break
		}
		*scanner.matches = append(*scanner.matches, item)
		n++
	}
	return n, nil
}

func (typenamer Matches) TypeName() string {
	return "[]string"
}

// Task is a normalize task.
type Task struct {
	root string
	src  string
	dst  string
}

// NewTask returns a new Task.
func NewTask(root, input, output string) (Task, error) {
	if len(output) != 0 && (output == "." || output[len(output)-1] == os.PathSeparator) {
		rel, err := filepath.Rel(root, input)
		if err != nil {
			return Task{}, err
		}
		output = filepath.Join(output, rel)
	}
	return Task{root, input, output}, nil
}

// Loggers.
var (
	Error   *log.Logger
	Warning *log.Logger
	Info    *log.Logger
)

func main() {
	// os.Exit doesn't execute pending defer calls, this is fixed by encapsulating run()
	os.Exit(run())
}

func run() int {
	var inputs []string
	var output string
	var configFile string
	var conservative bool
	var explicitClose bool
	var excludes []string

	defaultPreserve := []string{"mode", "timestamps"}
	if supportsGetOwnership {
		defaultPreserve = []string{"mode", "ownership", "timestamps"}
	}

	f := argp.New("htmlnorm")
	f.AddRest(&inputs, "inputs", "Input files or directories, leave blank to use stdin")
	f.AddOpt(&output, "o", "output", nil, "Output file or directory, leave blank to use stdout")
	f.AddOpt(&mimetype, "", "type", nil, "Filetype (eg. html or text/html), optional when specifying inputs")
	f.AddOpt(Matches{&matches}, "", "match", nil, "Filename matching pattern, only matching filenames are processed")
	f.AddOpt(&recursive, "r", "recursive", false, "Recursively normalize directories")
	f.AddOpt(&hidden, "a", "all", false, "Normalize all files, including hidden files and files in hidden directories")
	f.AddOpt(&list, "l", "list", false, "List all accepted filetypes")
	f.AddOpt(&quiet, "q", "quiet", false, "Quiet mode to suppress all output")
	f.AddOpt(argp.Count{&verbose}, "v", "verbose", nil, "Verbose mode, set twice for more verbosity")
	f.AddOpt(&watch, "w", "watch", false, "Watch files and normalize upon changes")
	f.AddOpt(&preserve, "p", "preserve", defaultPreserve, "Preserve options (mode, ownership, timestamps, all)")
	f.AddOpt(&version, "", "version", false, "Version")

	f.AddOpt(&configFile, "c", "config", nil, "Policy file in YAML, TOML or JSON format")
	f.AddOpt(&conservative, "", "conservative", false, "Only break lines where the input has whitespace")
	f.AddOpt(&explicitClose, "", "explicit-close", false, "Write all end tags, including omitted ones")
	f.AddOpt(&excludes, "", "exclude", nil, "Attributes to remove per tag (eg. input:autocomplete,tabindex)")
	f.Parse()

	if version {
		if !quiet {
			fmt.Printf("htmlnorm %s\n", Version)
		}
		return 0
	}

	if list {
		if !quiet {
			n := 0
			var keys []string
			for k := range extMap {
				keys = append(keys, k)
				if n < len(k) {
					n = len(k)
				}
			}
			sort.Strings(keys)
			for _, k := range keys {
				fmt.Println(k + strings.Repeat(" ", n-len(k)+2) + extMap[k])
			}
		}
		return 0
	}

	if len(inputs) == 1 && inputs[0] == "-" {
		inputs = inputs[:0] // stdin
	} else if output == "-" {
		output = "" // stdout
	}
	useStdin := len(inputs) == 0

	Error = log.New(io.Discard, "", 0)
	Warning = log.New(io.Discard, "", 0)
	Info = log.New(io.Discard, "", 0)
	if !quiet {
		Error = log.New(os.Stderr, "ERROR: ", 0)
		if 0 < verbose {
			Warning = log.New(os.Stderr, "WARNING: ", 0)
		}
		if 1 < verbose {
			Info = log.New(os.Stderr, "INFO: ", 0)
		}
	}

	// compile matches
	var err error
	if 0 < len(matches) {
		matchesRegexp = make([]*regexp.Regexp, len(matches))
		for i, pattern := range matches {
			if matchesRegexp[i], err = compilePattern(pattern); err != nil {
				Error.Println(err)
				return 1
			}
		}
	}

	// detect mimetype, mimetype=="" means we'll infer mimetype from file extensions
	if slash := strings.Index(mimetype, "/"); slash == -1 && 0 < len(mimetype) {
		var ok bool
		if mimetype, ok = extMap[mimetype]; !ok {
			Error.Println("unknown filetype", mimetype)
			return 1
		}
	}

	if (useStdin || output == "") && watch {
		Error.Println("--watch doesn't work with stdin and stdout, specify input and output")
		return 1
	} else if useStdin && recursive {
		Error.Println("--recursive doesn't work with stdin, specify input")
		return 1
	} else if output == "" && recursive {
		Error.Println("--recursive doesn't work with stdout, specify output")
		return 1
	}
	if mimetype == "" && useStdin {
		mimetype = "text/html"
	}
	if mimetype == "" {
		if !recursive {
			okAll := true
			for _, input := range inputs {
				if _, ok := extMap[fileExt(input)]; !ok {
					Error.Println("cannot infer mimetype from extension in", input, ", set --type explicitly")
					okAll = false
				}
			}
			if !okAll {
				return 1
			}
		}
		Info.Println("infer mimetype from file extensions")
	} else {
		Info.Println("use mimetype", mimetype)
	}
	if f.IsSet("preserve") && (useStdin || output == "") {
		Error.Println("--preserve cannot be used together with stdin or stdout")
		return 1
	}
	for _, option := range preserve {
		switch option {
		case "all":
			preserveMode = true
			preserveOwnership = true
			preserveTimestamps = true
		case "mode":
			preserveMode = true
		case "ownership":
			preserveOwnership = true
		case "timestamps":
			preserveTimestamps = true
		}
	}
	if preserveOwnership && !supportsGetOwnership {
		Warning.Println(fmt.Errorf("preserve ownership not supported on platform"))
	}

	// policy from the config file, overridden by flags
	htmlNormalizer := htmlnorm.HTMLNormalizer{}
	if configFile != "" {
		cfg, err := LoadConfig(configFile)
		if err != nil {
			Error.Println(err)
			return 1
		}
		cfg.Apply(&htmlNormalizer.Normalizer)
		Info.Println("use config file", configFile)
	}
	if conservative {
		htmlNormalizer.Whitespace = html.Conservative
	}
	if explicitClose {
		htmlNormalizer.ClosingTags = html.Explicit
	}
	if 0 < len(excludes) {
		attrExcludes, err := parseExcludes(excludes)
		if err != nil {
			Error.Println(err)
			return 1
		}
		htmlNormalizer.AttributeExcludes = mergeExcludes(htmlNormalizer.AttributeExcludes, attrExcludes)
	}

	////////////////

	for i, input := range inputs {
		if input == "-" {
			Error.Println("cannot mix files and stdin as input")
			return 1
		}
		inputs[i] = filepath.Clean(input)
		if input[len(input)-1] == os.PathSeparator {
			inputs[i] += string(os.PathSeparator)
		}
	}

	// set output file or directory, empty means stdout
	dirDst := false
	if output != "" {
		dirDst = IsDir(output)
		if !dirDst {
			if 1 < len(inputs) {
				Error.Printf("stat %v: no such file or directory\n", output)
				return 1
			} else if len(inputs) == 1 {
				if info, err := os.Lstat(inputs[0]); err == nil && info.Mode().IsDir() && info.Mode()&os.ModeSymlink == 0 {
					dirDst = true
				}
			}
		}

		output = filepath.Clean(output)
		if dirDst {
			output += string(os.PathSeparator)
		}
	} else if 1 < len(inputs) {
		Error.Println("must specify an output directory for multiple input files")
		return 1
	}
	if output == "" {
		Info.Println("normalize to stdout")
	} else if !dirDst {
		Info.Println("normalize to output file", output)
	} else if output == "."+string(os.PathSeparator) {
		Info.Println("normalize to current working directory")
	} else {
		Info.Println("normalize to output directory", output)
	}
	if useStdin {
		Info.Println("normalize from stdin")
	}

	var tasks []Task
	var roots []string
	if useStdin {
		task, err := NewTask("", "", output)
		if err != nil {
			Error.Println(err)
			return 1
		}
		tasks = append(tasks, task)
		roots = append(roots, "")
	} else {
		fsys := NewFS()
		tasks, roots, err = createTasks(fsys, inputs, output)
		if err != nil {
			Error.Println(err)
			return 1
		}
	}

	// make output directory
	if dirDst {
		if err := os.MkdirAll(output, 0777); err != nil {
			Error.Println(err)
			return 1
		}
	}

	////////////////

	m = newRegistry(htmlNormalizer)

	fails := 0
	start := time.Now()
	if !watch && (len(tasks) == 1 || 0 < verbose) {
		for _, task := range tasks {
			if ok := normalize(task); !ok {
				fails++
			}
		}
	} else {
		numWorkers := runtime.NumCPU()
		if 0 < verbose {
			numWorkers = 1
		} else if numWorkers < 4 {
			numWorkers = 4
		}
		p := newPool(numWorkers)

		if !watch {
			for _, task := range tasks {
				p.Add(task)
			}
		} else {
			watcher, err := NewWatcher(recursive)
			if err != nil {
				Error.Println(err)
				p.Wait()
				return 1
			}
			defer watcher.Close()

			for _, filename := range inputs {
				if err := watcher.AddPath(filename); err != nil {
					Error.Println(err)
				}
			}
			changes := watcher.Run()

			for _, task := range tasks {
				watcher.IgnoreNext(task.dst)
				p.Add(task)
			}

			c := make(chan os.Signal, 1)
			signal.Notify(c, os.Interrupt)
			for changes != nil {
				select {
				case <-c:
					watcher.Close()
				case file, ok := <-changes:
					if !ok {
						changes = nil
						break
					}
					file = filepath.Clean(file)
					if !fileMatches(file) {
						break
					}

					// find longest common path among roots
					root := ""
					for _, path := range roots {
						pathRel, err1 := filepath.Rel(path, file)
						rootRel, err2 := filepath.Rel(root, file)
						if err2 != nil || err1 == nil && len(pathRel) < len(rootRel) {
							root = path
						}
					}

					task, err := NewTask(root, file, output)
					if err != nil {
						Error.Println(err)
						break
					}
					watcher.IgnoreNext(task.dst) // skip change on output
					p.Add(task)
				}
			}
		}
		fails += p.Wait()
	}

	if !watch {
		Info.Println("finished in", time.Since(start))
	}
	if 0 < fails {
		return 1
	}
	return 0
}

// newRegistry returns the normalizers for all accepted filetypes, sharing the policy of o.
func newRegistry(o htmlnorm.HTMLNormalizer) *htmlnorm.M {
	m := htmlnorm.New()
	m.Add("text/html", &o)

	aspNormalizer := o
	aspNormalizer.TemplateDelims = [2]string{"<%", "%>"}
	m.Add("text/asp", &aspNormalizer)
	m.Add("text/x-ejs-template", &aspNormalizer)

	phpNormalizer := o
	phpNormalizer.TemplateDelims = [2]string{"<?", "?>"} // also handles <?php
	m.Add("application/x-httpd-php", &phpNormalizer)

	tmplNormalizer := o
	tmplNormalizer.TemplateDelims = [2]string{"{{", "}}"}
	m.Add("text/x-go-template", &tmplNormalizer)
	m.Add("text/x-mustache-template", &tmplNormalizer)
	m.Add("text/x-handlebars-template", &tmplNormalizer)
	return m
}

// parseExcludes parses tag:attr[,attr] items into a tag => attributes map.
func parseExcludes(items []string) (map[string]map[string]bool, error) {
	excludes := map[string]map[string]bool{}
	for _, item := range items {
		tag, attrs, ok := strings.Cut(item, ":")
		if !ok || tag == "" || attrs == "" {
			return nil, fmt.Errorf("bad exclude %q, expected tag:attr[,attr]", item)
		}
		tag = strings.ToLower(tag)
		if excludes[tag] == nil {
			excludes[tag] = map[string]bool{}
		}
		for _, attr := range strings.Split(attrs, ",") {
			if attr = strings.TrimSpace(attr); attr != "" {
				excludes[tag][strings.ToLower(attr)] = true
			}
		}
	}
	return excludes, nil
}

func mergeExcludes(dst, src map[string]map[string]bool) map[string]map[string]bool {
	if dst == nil {
		return src
	}
	for tag, attrs := range src {
		if dst[tag] == nil {
			dst[tag] = map[string]bool{}
		}
		for attr := range attrs {
			dst[tag][attr] = true
		}
	}
	return dst
}

// pool normalizes tasks on a fixed number of workers.
type pool struct {
	tasks chan Task
	fails chan int
	n     int
}

func newPool(numWorkers int) *pool {
	p := &pool{
		tasks: make(chan Task, 20),
		fails: make(chan int, numWorkers),
		n:     numWorkers,
	}
	for n := 0; n < numWorkers; n++ {
		go normalizeWorker(p.tasks, p.fails)
	}
	return p
}

// Add queues a task, it blocks when all workers are busy and the queue is full.
func (p *pool) Add(t Task) {
	p.tasks <- t
}

// Wait stops accepting tasks and returns the number of failed tasks once all workers have finished.
func (p *pool) Wait() int {
	close(p.tasks)
	fails := 0
	for n := 0; n < p.n; n++ {
		fails += <-p.fails
	}
	return fails
}

func normalizeWorker(chanTasks <-chan Task, chanFails chan<- int) {
	fails := 0
	for task := range chanTasks {
		if ok := normalize(task); !ok {
			fails++
		}
	}
	chanFails <- fails
}

// compilePattern compiles a filename glob, or a regular expression when prefixed by ~
func compilePattern(pattern string) (*regexp.Regexp, error) {
	if len(pattern) == 0 || pattern[0] != '~' {
		if strings.HasPrefix(pattern, `\~`) {
			pattern = pattern[1:]
		}
		pattern = regexp.QuoteMeta(pattern)
		pattern = strings.ReplaceAll(pattern, `\*\*`, `.*`)
		pattern = strings.ReplaceAll(pattern, `\*`, fmt.Sprintf(`[^%c]*`, filepath.Separator))
		pattern = strings.ReplaceAll(pattern, `\?`, fmt.Sprintf(`[^%c]?`, filepath.Separator))
		pattern = "^" + pattern + "$"
	} else {
		pattern = pattern[1:]
	}
	return regexp.Compile(pattern)
}

func fileExt(filename string) string {
	ext := filepath.Ext(filename)
	if 0 < len(ext) {
		ext = ext[1:]
	}
	return ext
}

func fileFilter(filename string) bool {
	if 0 < len(matches) {
		base := filepath.Base(filename)
		for _, re := range matchesRegexp {
			if re.MatchString(base) {
				return true
			}
		}
		return false
	}
	return true
}

func fileMatches(filename string) bool {
	if !fileFilter(filename) {
		return false
	} else if mimetype != "" {
		return true
	}
	_, ok := extMap[fileExt(filename)]
	return ok
}

func createTasks(fsys fs.FS, inputs []string, output string) ([]Task, []string, error) {
	tasks := []Task{}
	roots := []string{}
	for _, input := range inputs {
		root := filepath.Clean(filepath.Dir(input))
		input = filepath.Clean(input)

		// follow and dereference symlinks
		info, err := fs.Stat(fsys, input)
		if err != nil {
			return nil, nil, err
		}

		if info.Mode().IsRegular() {
			if fileFilter(input) { // don't filter mimetype
				task, err := NewTask(root, input, output)
				if err != nil {
					return nil, nil, err
				}
				tasks = append(tasks, task)
			}
		} else if info.Mode().IsDir() {
			if !recursive {
				Warning.Println("--recursive not specified, omitting directory", input)
				continue
			}

			var walkFn func(string, fs.DirEntry, error) error
			walkFn = func(input string, d fs.DirEntry, err error) error {
				if err != nil {
					return err
				} else if d.Name() == "." || d.Name() == ".." {
					return nil
				} else if d.Name() == "" || !hidden && d.Name()[0] == '.' {
					if d.IsDir() {
						return fs.SkipDir
					}
					return nil
				}

				if d.Type()&os.ModeSymlink != 0 {
					// follow and dereference symlinks
					info, err := fs.Stat(fsys, input)
					if err != nil {
						return err
					}
					if info.IsDir() {
						return fs.WalkDir(fsys, input, walkFn)
					}
					d = fs.FileInfoToDirEntry(info)
				}

				if d.Type().IsRegular() && fileMatches(input) {
					task, err := NewTask(root, input, output)
					if err != nil {
						return err
					}
					tasks = append(tasks, task)
				}
				return nil
			}
			if err := fs.WalkDir(fsys, input, walkFn); err != nil {
				return nil, nil, err
			}
			roots = append(roots, root)
		} else {
			return nil, nil, fmt.Errorf("not a file or directory %s", input)
		}
	}
	return tasks, roots, nil
}

func normalize(t Task) bool {
	fileMimetype := mimetype
	if mimetype == "" {
		var ok bool
		if fileMimetype, ok = extMap[fileExt(t.src)]; !ok {
			Warning.Println("cannot infer mimetype from extension in", t.src, ", set --type explicitly")
			return false
		}
	}

	srcName := t.src
	if srcName == "" {
		srcName = "stdin"
	}
	dstName := t.dst
	if dstName == "" {
		dstName = "stdout"
	} else if sameFile, _ := SameFile(t.src, t.dst); sameFile {
		// rename original when overwriting
		t.src += ".bak"
		err := try.Do(func(attempt int) (bool, error) {
			ferr := os.Rename(t.dst, t.src)
			return attempt < 5, ferr
		})
		if err != nil {
			Error.Println(err)
			return false
		}
	}

	fr, err := openInputFile(t.src)
	if err != nil {
		Error.Println(err)
		return false
	}

	fw, err := openOutputFile(t.dst)
	if err != nil {
		Error.Println(err)
		fr.Close()
		return false
	}

	b, err := io.ReadAll(fr)
	if err != nil {
		fr.Close()
		fw.Close()
		Error.Println("cannot normalize "+srcName+":", err)
		return false
	}
	w := bytes.NewBuffer(make([]byte, 0, len(b)))

	success := true
	startTime := time.Now()
	if err = m.Normalize(fileMimetype, w, bytes.NewReader(b)); err != nil {
		w = bytes.NewBuffer(b) // copy original
		Error.Println("cannot normalize "+srcName+":", err)
		success = false
	}

	rLen, wLen := len(b), w.Len()
	_, err = io.Copy(fw, w)
	fr.Close()
	if fw != os.Stdout {
		if cerr := fw.Close(); err == nil {
			err = cerr
		}
	}

	if !quiet {
		dur := time.Since(startTime)
		speed := "Inf MB"
		if 0 < dur {
			speed = humanize.Bytes(uint64(float64(rLen) / dur.Seconds()))
		}

		stats := fmt.Sprintf("(%9v, %6v, %6v, %6v/s)", dur, humanize.Bytes(uint64(rLen)), humanize.Bytes(uint64(wLen)), speed)
		if t.dst == "" {
			Info.Println(stats, "-", srcName, "to", dstName)
		} else if srcName != dstName {
			fmt.Println(stats, "-", srcName, "to", dstName)
		} else {
			fmt.Println(stats, "-", srcName)
		}
	}

	// remove original that was renamed, when overwriting files
	if t.src == t.dst+".bak" {
		if err == nil {
			if err = os.Remove(t.src); err != nil {
				Error.Println(err)
				return false
			}
		} else {
			if err = os.Remove(t.dst); err != nil {
				Error.Println(err)
				return false
			} else if err = os.Rename(t.src, t.dst); err != nil {
				Error.Println(err)
				return false
			}
		}
		t.src = t.dst
	} else if err != nil {
		Error.Println(err)
		return false
	}
	preserveAttributes(t.src, t.root, t.dst)
	return success
}

func preserveAttributes(src, root, dst string) {
	if src == "" || dst == "" {
		return
	}

	// make sure we only set attributes on directories and files inside the root destination
	var err error
	src, err = filepath.Rel(root, src)
	if err != nil {
		// should never occur
		Error.Printf("src is not part of root path: src=%s root=%s", src, root)
		return
	}

Next:
	srcInfo, err := os.Stat(filepath.Join(root, src))
	if err != nil {
		Warning.Println(err)
		return
	}

	if preserveMode {
		err = os.Chmod(dst, srcInfo.Mode().Perm())
		if err != nil {
			Warning.Println(err)
		}
	}
	if preserveOwnership {
		if uid, gid, ok := getOwnership(srcInfo); ok {
			err = os.Chown(dst, uid, gid)
			if err != nil {
				Warning.Println(err)
			}
		}
	}
	if preserveTimestamps {
		err = os.Chtimes(dst, atime.Get(srcInfo), srcInfo.ModTime())
		if err != nil {
			Warning.Println(err)
		}
	}

	src = filepath.Dir(src)
	dst = filepath.Dir(dst)
	if src != "." {
		// go up to but excluding the root path
		goto Next
	}
}
