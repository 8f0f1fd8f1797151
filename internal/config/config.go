package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/ascendhq/ascend/internal/pathutil"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/cobra"
)

type Config struct {
	Server       ServerConfig       `koanf:"server"`
	Models       ModelsConfig       `koanf:"models"`
	Prompts      PromptsConfig      `koanf:"prompts"`
	Store        StoreConfig        `koanf:"store"`
	Orchestrator OrchestratorConfig `koanf:"orchestrator"`
	Assembler    AssemblerConfig    `koanf:"assembler"`
}

type ServerConfig struct {
	LogLevel string `koanf:"log_level"`
}

type ModelsConfig struct {
	Classifier string          `koanf:"classifier"`
	Responder  string          `koanf:"responder"`
	Roadmap    string          `koanf:"roadmap"`
	Registry   []ModelRegistry `koanf:"registry"`
}

type ModelRegistry struct {
	Name           string `koanf:"name"`
	Provider       string `koanf:"provider"`
	BaseURL        string `koanf:"base_url"`
	APIKey         string `koanf:"api_key"`
	RequestTimeout string `koanf:"request_timeout"`
}

type PromptsConfig struct {
	Classifier ClassifierPromptConfig `koanf:"classifier"`
	Responder  ResponderPromptConfig  `koanf:"responder"`
	Roadmap    RoadmapPromptConfig    `koanf:"roadmap"`
}

type ClassifierPromptConfig struct {
	System string `koanf:"system"`
	Output string `koanf:"output"`
}

type ResponderPromptConfig struct {
	System string `koanf:"system"`
	Output string `koanf:"output"`
}

type RoadmapPromptConfig struct {
	System string `koanf:"system"`
	Output string `koanf:"output"`
}

type StoreConfig struct {
	WorkspaceID   string `koanf:"workspace_id"`
	WorkspacePath string `koanf:"workspace_path"`
	SeedPath      string `koanf:"seed_path"`
	LockTimeout   string `koanf:"lock_timeout"`
	LockRetry     string `koanf:"lock_retry"`
}

type OrchestratorConfig struct {
	HistoryLimit                  int     `koanf:"history_limit"`
	ClassifierConfidenceThreshold float64 `koanf:"classifier_confidence_threshold"`
}

type AssemblerConfig struct {
	UpcomingEventsLimit int `koanf:"upcoming_events_limit"`
	UpcomingWindowDays  int `koanf:"upcoming_window_days"`
}

const (
	DefaultWorkspaceID         = "default"
	DefaultServerLogLevel      = "info"
	DefaultModelClassifier     = "gpt-4o-mini"
	DefaultModelResponder      = "gpt-4o"
	DefaultModelRoadmap        = "gpt-4o"
	DefaultOpenAIBaseURL       = "https://api.openai.com/v1"
	DefaultModelRequestTimeout = "120s"

	DefaultStoreLockTimeout = "30s"
	DefaultStoreLockRetry   = "100ms"

	DefaultOrchestratorHistoryLimit      = 10
	DefaultClassifierConfidenceThreshold = 0.8
	DefaultAssemblerUpcomingEventsLimit  = 10
	DefaultAssemblerUpcomingWindowDays   = 7

	DefaultClassifierSystemPrompt = "You are an intent classifier for a goal-planning assistant. Classify the user's latest message given the recent conversation."
	DefaultClassifierOutputPrompt = "Return a JSON object with:\n- \"intent\": one of \"CHAT\", \"QUESTION\", \"QUERY\", \"ACTION\", \"CLARIFY\"\n- \"confidence\": number between 0 and 1\n- \"reasoning\": short string\n- \"suggested_response\": optional string, a complete reply usable verbatim when no plan change is needed.\nDo not include other text."
	DefaultResponderSystemPrompt  = "You are Ascend, a planning coach managing the user's goals, phases, milestones, tasks, subtasks and calendar events. The plan snapshot you receive is a hint, not authoritative state. Every action that targets an existing entity must reference it by its id from the snapshot, never by title."
	DefaultResponderOutputPrompt  = "Return a JSON object with:\n- \"message\": string, your reply to the user\n- \"actions\": array of {\"type\": string, \"data\": object} entries, empty when no plan change is needed.\nDo not include markdown fences or commentary outside the JSON."
	DefaultRoadmapSystemPrompt    = "You are a roadmap generator. Produce a realistic phase/milestone/task/subtask breakdown for the given goal and user profile."
	DefaultRoadmapOutputPrompt    = "Return a JSON object with \"title\", \"description\" and \"phases\": [{\"title\", \"description\", \"week_offset\", \"milestones\": [{\"title\", \"description\", \"week_offset\", \"tasks\": [{\"title\", \"subtasks\": [{\"title\"}]}]}]}]. No ids, no markdown, no extra text."
)

func Load(cmd *cobra.Command) (*Config, error) {
	k := koanf.New(".")

	defaults := map[string]interface{}{
		"server.log_level":  DefaultServerLogLevel,
		"models.classifier": DefaultModelClassifier,
		"models.responder":  DefaultModelResponder,
		"models.roadmap":    DefaultModelRoadmap,
		"models.registry": []ModelRegistry{
			{Name: DefaultModelClassifier, Provider: "openai"},
			{Name: DefaultModelResponder, Provider: "openai"},
		},
		"prompts.classifier.system":                    DefaultClassifierSystemPrompt,
		"prompts.classifier.output":                    DefaultClassifierOutputPrompt,
		"prompts.responder.system":                     DefaultResponderSystemPrompt,
		"prompts.responder.output":                     DefaultResponderOutputPrompt,
		"prompts.roadmap.system":                       DefaultRoadmapSystemPrompt,
		"prompts.roadmap.output":                       DefaultRoadmapOutputPrompt,
		"store.workspace_id":                           DefaultWorkspaceID,
		"store.workspace_path":                         filepath.Join(os.Getenv("HOME"), ".ascend", "workspaces"),
		"store.lock_timeout":                           DefaultStoreLockTimeout,
		"store.lock_retry":                             DefaultStoreLockRetry,
		"orchestrator.history_limit":                   DefaultOrchestratorHistoryLimit,
		"orchestrator.classifier_confidence_threshold": DefaultClassifierConfidenceThreshold,
		"assembler.upcoming_events_limit":              DefaultAssemblerUpcomingEventsLimit,
		"assembler.upcoming_window_days":               DefaultAssemblerUpcomingWindowDays,
	}
	for key, value := range defaults {
		k.Set(key, value)
	}

	configPath := ""
	if cmd != nil {
		if flag := cmd.Flags().Lookup("config"); flag != nil {
			configPath = strings.TrimSpace(flag.Value.String())
		}
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, err
		}
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			globalPath := filepath.Join(home, ".ascend", "config.yaml")
			if err := k.Load(file.Provider(globalPath), yaml.Parser()); err != nil {
				slog.Debug("Global config not found or invalid", "path", globalPath, "error", err)
			}
		}
	}

	// Double underscore separates nesting levels so key names keep their
	// single underscores: ASCEND_SERVER__LOG_LEVEL -> server.log_level.
	k.Load(env.Provider("ASCEND_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "ASCEND_")), "__", ".", -1)
	}), nil)

	if cmd != nil {
		k.Load(posflag.Provider(cmd.Flags(), ".", k), nil)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	for i, m := range cfg.Models.Registry {
		if m.Provider == "" {
			cfg.Models.Registry[i].Provider = "openai"
		}
	}

	if err := normalizePathFields(&cfg); err != nil {
		return nil, err
	}

	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		for i, m := range cfg.Models.Registry {
			if m.Provider == "openai" && m.APIKey == "" {
				cfg.Models.Registry[i].APIKey = key
			}
		}
	}
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		for i, m := range cfg.Models.Registry {
			if m.Provider == "anthropic" && m.APIKey == "" {
				cfg.Models.Registry[i].APIKey = key
			}
		}
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		for i, m := range cfg.Models.Registry {
			if m.Provider == "gemini" && m.APIKey == "" {
				cfg.Models.Registry[i].APIKey = key
			}
		}
	}

	return &cfg, nil
}

func normalizePathFields(cfg *Config) error {
	if cfg == nil {
		return nil
	}

	workspacePath, err := expandConfiguredPath(cfg.Store.WorkspacePath)
	if err != nil {
		return err
	}
	if workspacePath != "" {
		cfg.Store.WorkspacePath = workspacePath
	}

	seedPath, err := expandConfiguredPath(cfg.Store.SeedPath)
	if err != nil {
		return err
	}
	if seedPath != "" {
		cfg.Store.SeedPath = seedPath
	}

	return nil
}

func expandConfiguredPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", nil
	}
	return pathutil.Expand(trimmed)
}
