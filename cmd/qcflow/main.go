package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/qcforge/qcflow/internal/config"
	"github.com/qcforge/qcflow/internal/custodian"
	"github.com/qcforge/qcflow/internal/logbook"
	"github.com/qcforge/qcflow/internal/logging"
	"github.com/qcforge/qcflow/internal/task"
	"github.com/qcforge/qcflow/internal/tasks"
	"github.com/qcforge/qcflow/internal/tui"
	"github.com/qcforge/qcflow/plugins"
)

func main() {
	taskID := flag.String("task", "", "task identifier to execute (e.g. run-qchem-fake)")
	projectDir := flag.String("project", "", "path to the project directory (defaults to cwd)")
	configFile := flag.String("config-file", "", "path to YAML/JSON file with task options")
	watch := flag.Bool("watch", false, "run inside the interactive view")
	listTasks := flag.Bool("list", false, "list registered task identifiers and exit")
	sets := keyValueFlag{}
	flag.Var(&sets, "set", "task option (key=value, repeatable)")
	flag.Parse()

	project := *projectDir
	if project == "" {
		var err error
		project, err = os.Getwd()
		if err != nil {
			die("determine working directory: %v", err)
		}
	}
	absoluteProject, err := filepath.Abs(project)
	if err != nil {
		die("resolve project dir: %v", err)
	}
	if err := config.InitDir(absoluteProject); err != nil {
		die("init .qcflow: %v", err)
	}
	cfg, err := config.New(absoluteProject)
	if err != nil {
		die("load config: %v", err)
	}

	handlers := custodian.NewHandlerRegistry()
	if err := plugins.RegisterHandlerPlugins(handlers, cfg); err != nil {
		die("load handler plugins: %v", err)
	}
	reg := task.NewRegistry()
	tasks.RegisterBuiltins(reg, handlers)

	if *listTasks {
		for _, id := range reg.IDs() {
			fmt.Println(id)
		}
		return
	}
	if strings.TrimSpace(*taskID) == "" {
		die("--task is required")
	}

	options, err := buildTaskConfig(*configFile, sets)
	if err != nil {
		die("load task options: %v", err)
	}
	t, err := reg.Resolve(*taskID, options)
	if err != nil {
		die("resolve task: %v", err)
	}

	logger, err := logging.New(absoluteProject)
	if err != nil {
		die("open log: %v", err)
	}
	defer logger.Close()
	lb, err := logbook.New(filepath.Join(cfg.LogsDir(), "logbook.log"))
	if err != nil {
		die("open logbook: %v", err)
	}
	ctx, err := task.NewContext(cfg, logger, lb)
	if err != nil {
		die("build context: %v", err)
	}

	info := t.Info()
	label := taskLabel(info, *taskID)
	runID := lb.RunStart(info.ID)
	run := func() (task.Result, error) { return t.Run(ctx) }

	var result task.Result
	if *watch {
		result, err = tui.Run(label, run)
	} else {
		result, err = run()
	}
	if err != nil {
		lb.RunEnd(runID, string(task.StatusFailed), err.Error())
		die("run task: %v", err)
	}
	lb.RunEnd(runID, string(result.Status), result.Message)
	if !*watch {
		fmt.Printf("Run status: %s\n", result.Status)
		if result.Message != "" {
			fmt.Println(result.Message)
		}
	}
}

func die(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

type keyValueFlag map[string]string

func (kv *keyValueFlag) String() string {
	if kv == nil || len(*kv) == 0 {
		return ""
	}
	var pairs []string
	for key, value := range *kv {
		pairs = append(pairs, fmt.Sprintf("%s=%s", key, value))
	}
	return strings.Join(pairs, ", ")
}

func (kv *keyValueFlag) Set(value string) error {
	parts := strings.SplitN(value, "=", 2)
	if len(parts) != 2 {
		return fmt.Errorf("expected key=value, got %q", value)
	}
	key := strings.TrimSpace(parts[0])
	if key == "" {
		return fmt.Errorf("option key is empty in %q", value)
	}
	if *kv == nil {
		*kv = keyValueFlag{}
	}
	(*kv)[key] = parts[1]
	return nil
}

func buildTaskConfig(configFile string, overrides keyValueFlag) (task.Config, error) {
	var cfg task.Config
	if path := strings.TrimSpace(configFile); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	if len(overrides) > 0 {
		if cfg == nil {
			cfg = task.Config{}
		}
		for key, value := range overrides {
			cfg[key] = value
		}
	}
	if cfg == nil {
		cfg = task.Config{}
	}
	return cfg, nil
}

func taskLabel(info task.Info, fallback string) string {
	if name := strings.TrimSpace(info.Name); name != "" {
		return name
	}
	return fallback
}
