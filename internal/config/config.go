package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is read when no --config flag is given. A missing default
// file means built-in defaults.
const DefaultPath = "loqa-transcribe.yaml"

type TelemetryConfig struct {
	LogLevel     string `yaml:"log_level"`
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	OTLPInsecure bool   `yaml:"otlp_insecure"`
	TraceStdout  bool   `yaml:"trace_stdout"`
}

type HTTPConfig struct {
	Enabled bool   `yaml:"enabled"`
	Bind    string `yaml:"bind"`
	Port    int    `yaml:"port"`
}

type Config struct {
	ServiceName   string              `yaml:"service_name"`
	Environment   string              `yaml:"environment"`
	Models        ModelsConfig        `yaml:"models"`
	Transcription TranscriptionConfig `yaml:"transcription"`
	VAD           VADConfig           `yaml:"vad"`
	Live          LiveConfig          `yaml:"live"`
	HTTP          HTTPConfig          `yaml:"http"`
	Telemetry     TelemetryConfig     `yaml:"telemetry"`
	Bus           BusConfig           `yaml:"bus"`
	Store         StoreConfig         `yaml:"store"`
	LLM           LLMConfig           `yaml:"llm"`
	TTS           TTSConfig           `yaml:"tts"`
}

type ModelsConfig struct {
	Mode            string `yaml:"mode"` // exec, mock
	AcousticCommand string `yaml:"acoustic_command"`
	AcousticModel   string `yaml:"acoustic_model"`
	LabelsPath      string `yaml:"labels_path"`
	LMCommand       string `yaml:"lm_command"`
	LMPath          string `yaml:"lm_path"`
}

type TranscriptionConfig struct {
	ChunkLengthS  float64  `yaml:"chunk_length_s"`
	StrideLengthS float64  `yaml:"stride_length_s"`
	MinChunkS     float64  `yaml:"min_chunk_s"`
	UseLM         bool     `yaml:"use_lm"`
	UseVAD        bool     `yaml:"use_vad"`
	OutputDir     string   `yaml:"output_dir"`
	Formats       []string `yaml:"formats"`
	FFmpegCommand string   `yaml:"ffmpeg_command"`
}

type VADConfig struct {
	FrameMS      int     `yaml:"frame_ms"`
	RMSThreshold float64 `yaml:"rms_threshold"`
	MinSpeechMS  int     `yaml:"min_speech_ms"`
	MinSilenceMS int     `yaml:"min_silence_ms"`
	MaxSegmentS  float64 `yaml:"max_segment_s"`
	MergeGapMS   int     `yaml:"merge_gap_ms"`
}

type LiveConfig struct {
	ChunkLengthS   float64 `yaml:"chunk_length_s"`
	Overlap        float64 `yaml:"overlap"`
	SampleRate     int     `yaml:"sample_rate"`
	UseLM          bool    `yaml:"use_lm"`
	QueueSize      int     `yaml:"queue_size"`
	QueuePolicy    string  `yaml:"queue_policy"` // block, drop_oldest
	DrainTimeoutMS int     `yaml:"drain_timeout_ms"`
	IdleIntervalMS int     `yaml:"idle_interval_ms"`
	SaveFolder     string  `yaml:"save_folder"`
	CaptureCommand string  `yaml:"capture_command"`
}

type BusConfig struct {
	Enabled        bool     `yaml:"enabled"`
	Embedded       bool     `yaml:"embedded"`
	Port           int      `yaml:"port"`
	Servers        []string `yaml:"servers"`
	Username       string   `yaml:"username"`
	Password       string   `yaml:"password"`
	Token          string   `yaml:"token"`
	TLSInsecure    bool     `yaml:"tls_insecure"`
	ConnectTimeout int      `yaml:"connect_timeout_ms"`
	SubjectPrefix  string   `yaml:"subject_prefix"`
}

type StoreConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Path          string `yaml:"path"`
	RetentionDays int    `yaml:"retention_days"`
	MaxSessions   int    `yaml:"max_sessions"`
}

type LLMConfig struct {
	Mode        string  `yaml:"mode"` // mock, ollama, exec
	Endpoint    string  `yaml:"endpoint"`
	Command     string  `yaml:"command"`
	Model       string  `yaml:"model"`
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`
}

type TTSConfig struct {
	Mode       string `yaml:"mode"` // mock, exec
	Command    string `yaml:"command"`
	Voice      string `yaml:"voice"`
	SampleRate int    `yaml:"sample_rate"`
}

func Default() Config {
	return Config{
		ServiceName: "loqa-transcribe",
		Environment: "development",
		Models: ModelsConfig{
			Mode:            "exec",
			AcousticCommand: "loqa-acoustic",
			LabelsPath:      "./models/labels.json",
			LMCommand:       "loqa-ctc-decoder",
			LMPath:          "./models/lm_6.kenlm",
		},
		Transcription: TranscriptionConfig{
			ChunkLengthS:  30,
			StrideLengthS: 5,
			MinChunkS:     0.5,
			UseLM:         true,
			UseVAD:        true,
			Formats:       []string{"txt"},
			FFmpegCommand: "ffmpeg",
		},
		VAD: VADConfig{
			FrameMS:      30,
			RMSThreshold: 0.012,
			MinSpeechMS:  240,
			MinSilenceMS: 450,
			MaxSegmentS:  18,
			MergeGapMS:   150,
		},
		Live: LiveConfig{
			ChunkLengthS:   5,
			Overlap:        0.5,
			SampleRate:     16000,
			UseLM:          false,
			QueueSize:      64,
			QueuePolicy:    "block",
			DrainTimeoutMS: 2000,
			IdleIntervalMS: 2000,
			SaveFolder:     "transcripts",
		},
		HTTP: HTTPConfig{
			Enabled: false,
			Bind:    "127.0.0.1",
			Port:    8080,
		},
		Telemetry: TelemetryConfig{
			LogLevel:     "info",
			OTLPEndpoint: "",
			OTLPInsecure: true,
		},
		Bus: BusConfig{
			Enabled:        false,
			Embedded:       true,
			Port:           4222,
			Servers:        []string{"nats://localhost:4222"},
			ConnectTimeout: 2000,
			SubjectPrefix:  "transcribe",
		},
		Store: StoreConfig{
			Enabled:       false,
			Path:          "./data/loqa-transcripts.db",
			RetentionDays: 30,
			MaxSessions:   10000,
		},
		LLM: LLMConfig{
			Mode:        "mock",
			Endpoint:    "http://localhost:11434",
			Model:       "llama3.2:latest",
			MaxTokens:   256,
			Temperature: 0.7,
		},
		TTS: TTSConfig{
			Mode:       "mock",
			SampleRate: 22050,
		},
	}
}

func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return cfg, fmt.Errorf("config file not found: %w", err)
			}
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	if err := validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Resolve picks the file Load should read. An explicit path is always used;
// otherwise DefaultPath is used when it exists.
func Resolve(path string) string {
	if path != "" {
		return path
	}
	if _, err := os.Stat(DefaultPath); err == nil {
		return DefaultPath
	}
	return ""
}

func (c LiveConfig) DrainTimeout() time.Duration {
	return time.Duration(c.DrainTimeoutMS) * time.Millisecond
}

func (c LiveConfig) IdleInterval() time.Duration {
	return time.Duration(c.IdleIntervalMS) * time.Millisecond
}

func applyEnvOverrides(cfg *Config) {
	overrideString(&cfg.ServiceName, "LOQA_TRANSCRIBE_SERVICE_NAME")
	overrideString(&cfg.Environment, "LOQA_TRANSCRIBE_ENVIRONMENT")
	overrideString(&cfg.Models.Mode, "LOQA_TRANSCRIBE_MODELS_MODE")
	overrideString(&cfg.Models.AcousticCommand, "LOQA_TRANSCRIBE_ACOUSTIC_COMMAND")
	overrideString(&cfg.Models.AcousticModel, "LOQA_TRANSCRIBE_ACOUSTIC_MODEL")
	overrideString(&cfg.Models.LabelsPath, "LOQA_TRANSCRIBE_LABELS_PATH")
	overrideString(&cfg.Models.LMCommand, "LOQA_TRANSCRIBE_LM_COMMAND")
	overrideString(&cfg.Models.LMPath, "LOQA_TRANSCRIBE_LM_PATH")
	overrideFloat(&cfg.Transcription.ChunkLengthS, "LOQA_TRANSCRIBE_CHUNK_LENGTH_S")
	overrideFloat(&cfg.Transcription.StrideLengthS, "LOQA_TRANSCRIBE_STRIDE_LENGTH_S")
	overrideBool(&cfg.Transcription.UseLM, "LOQA_TRANSCRIBE_USE_LM")
	overrideBool(&cfg.Transcription.UseVAD, "LOQA_TRANSCRIBE_USE_VAD")
	overrideString(&cfg.Transcription.OutputDir, "LOQA_TRANSCRIBE_OUTPUT_DIR")
	overrideStringSlice(&cfg.Transcription.Formats, "LOQA_TRANSCRIBE_FORMATS")
	overrideString(&cfg.Transcription.FFmpegCommand, "LOQA_TRANSCRIBE_FFMPEG_COMMAND")
	overrideFloat(&cfg.VAD.RMSThreshold, "LOQA_TRANSCRIBE_VAD_RMS_THRESHOLD")
	overrideFloat(&cfg.VAD.MaxSegmentS, "LOQA_TRANSCRIBE_VAD_MAX_SEGMENT_S")
	overrideFloat(&cfg.Live.ChunkLengthS, "LOQA_TRANSCRIBE_LIVE_CHUNK_LENGTH_S")
	overrideFloat(&cfg.Live.Overlap, "LOQA_TRANSCRIBE_LIVE_OVERLAP")
	overrideInt(&cfg.Live.SampleRate, "LOQA_TRANSCRIBE_LIVE_SAMPLE_RATE")
	overrideBool(&cfg.Live.UseLM, "LOQA_TRANSCRIBE_LIVE_USE_LM")
	overrideInt(&cfg.Live.QueueSize, "LOQA_TRANSCRIBE_LIVE_QUEUE_SIZE")
	overrideString(&cfg.Live.QueuePolicy, "LOQA_TRANSCRIBE_LIVE_QUEUE_POLICY")
	overrideInt(&cfg.Live.DrainTimeoutMS, "LOQA_TRANSCRIBE_LIVE_DRAIN_TIMEOUT_MS")
	overrideString(&cfg.Live.SaveFolder, "LOQA_TRANSCRIBE_LIVE_SAVE_FOLDER")
	overrideString(&cfg.Live.CaptureCommand, "LOQA_TRANSCRIBE_LIVE_CAPTURE_COMMAND")
	overrideBool(&cfg.HTTP.Enabled, "LOQA_TRANSCRIBE_HTTP_ENABLED")
	overrideString(&cfg.HTTP.Bind, "LOQA_TRANSCRIBE_HTTP_BIND")
	overrideInt(&cfg.HTTP.Port, "LOQA_TRANSCRIBE_HTTP_PORT")
	overrideString(&cfg.Telemetry.LogLevel, "LOQA_TRANSCRIBE_LOG_LEVEL")
	overrideString(&cfg.Telemetry.OTLPEndpoint, "LOQA_TRANSCRIBE_OTLP_ENDPOINT")
	overrideBool(&cfg.Telemetry.OTLPInsecure, "LOQA_TRANSCRIBE_OTLP_INSECURE")
	overrideBool(&cfg.Telemetry.TraceStdout, "LOQA_TRANSCRIBE_TRACE_STDOUT")
	overrideBool(&cfg.Bus.Enabled, "LOQA_TRANSCRIBE_BUS_ENABLED")
	overrideBool(&cfg.Bus.Embedded, "LOQA_TRANSCRIBE_BUS_EMBEDDED")
	overrideInt(&cfg.Bus.Port, "LOQA_TRANSCRIBE_BUS_PORT")
	overrideStringSlice(&cfg.Bus.Servers, "LOQA_TRANSCRIBE_BUS_SERVERS")
	overrideString(&cfg.Bus.Username, "LOQA_TRANSCRIBE_BUS_USERNAME")
	overrideString(&cfg.Bus.Password, "LOQA_TRANSCRIBE_BUS_PASSWORD")
	overrideString(&cfg.Bus.Token, "LOQA_TRANSCRIBE_BUS_TOKEN")
	overrideBool(&cfg.Bus.TLSInsecure, "LOQA_TRANSCRIBE_BUS_TLS_INSECURE")
	overrideInt(&cfg.Bus.ConnectTimeout, "LOQA_TRANSCRIBE_BUS_CONNECT_TIMEOUT_MS")
	overrideString(&cfg.Bus.SubjectPrefix, "LOQA_TRANSCRIBE_BUS_SUBJECT_PREFIX")
	overrideBool(&cfg.Store.Enabled, "LOQA_TRANSCRIBE_STORE_ENABLED")
	overrideString(&cfg.Store.Path, "LOQA_TRANSCRIBE_STORE_PATH")
	overrideInt(&cfg.Store.RetentionDays, "LOQA_TRANSCRIBE_STORE_RETENTION_DAYS")
	overrideInt(&cfg.Store.MaxSessions, "LOQA_TRANSCRIBE_STORE_MAX_SESSIONS")
	overrideString(&cfg.LLM.Mode, "LOQA_TRANSCRIBE_LLM_MODE")
	overrideString(&cfg.LLM.Endpoint, "LOQA_TRANSCRIBE_LLM_ENDPOINT")
	overrideString(&cfg.LLM.Command, "LOQA_TRANSCRIBE_LLM_COMMAND")
	overrideString(&cfg.LLM.Model, "LOQA_TRANSCRIBE_LLM_MODEL")
	overrideInt(&cfg.LLM.MaxTokens, "LOQA_TRANSCRIBE_LLM_MAX_TOKENS")
	overrideFloat(&cfg.LLM.Temperature, "LOQA_TRANSCRIBE_LLM_TEMPERATURE")
	overrideString(&cfg.TTS.Mode, "LOQA_TRANSCRIBE_TTS_MODE")
	overrideString(&cfg.TTS.Command, "LOQA_TRANSCRIBE_TTS_COMMAND")
	overrideString(&cfg.TTS.Voice, "LOQA_TRANSCRIBE_TTS_VOICE")
	overrideInt(&cfg.TTS.SampleRate, "LOQA_TRANSCRIBE_TTS_SAMPLE_RATE")
}

func overrideString(target *string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok && strings.TrimSpace(value) != "" {
		*target = value
	}
}

func overrideInt(target *int, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			*target = parsed
		}
	}
}

func overrideBool(target *bool, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseBool(value); err == nil {
			*target = parsed
		}
	}
}

func overrideStringSlice(target *[]string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		parts := strings.Split(value, ",")
		var trimmed []string
		for _, p := range parts {
			if s := strings.TrimSpace(p); s != "" {
				trimmed = append(trimmed, s)
			}
		}
		if len(trimmed) > 0 {
			*target = trimmed
		}
	}
}

func overrideFloat(target *float64, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			*target = parsed
		}
	}
}

func validate(cfg Config) error {
	if cfg.ServiceName == "" {
		return errors.New("service_name must not be empty")
	}
	switch cfg.Models.Mode {
	case "mock":
	case "exec":
		if cfg.Models.AcousticCommand == "" {
			return errors.New("models.acoustic_command must be set when mode=exec")
		}
		if cfg.Models.LabelsPath == "" {
			return errors.New("models.labels_path must be set when mode=exec")
		}
	default:
		return errors.New("models.mode must be one of exec|mock")
	}

	t := cfg.Transcription
	if t.ChunkLengthS <= 0 {
		return errors.New("transcription.chunk_length_s must be positive")
	}
	if t.StrideLengthS <= 0 || t.StrideLengthS > t.ChunkLengthS {
		return errors.New("transcription.stride_length_s must be positive and not exceed chunk_length_s")
	}
	if t.MinChunkS < 0 {
		return errors.New("transcription.min_chunk_s must be >= 0")
	}
	for _, f := range t.Formats {
		switch strings.ToLower(f) {
		case "txt", "json", "vtt", "srt":
		default:
			return fmt.Errorf("transcription.formats: unknown format %q", f)
		}
	}
	if t.UseLM && cfg.Models.Mode == "exec" && cfg.Models.LMCommand == "" {
		return errors.New("models.lm_command must be set when transcription.use_lm is enabled")
	}

	v := cfg.VAD
	if v.FrameMS <= 0 {
		return errors.New("vad.frame_ms must be positive")
	}
	if v.RMSThreshold < 0 {
		return errors.New("vad.rms_threshold must be >= 0")
	}
	if v.MinSpeechMS < 0 || v.MinSilenceMS <= 0 || v.MergeGapMS < 0 {
		return errors.New("vad durations must be non-negative and min_silence_ms positive")
	}
	if v.MaxSegmentS <= 0 {
		return errors.New("vad.max_segment_s must be positive")
	}

	l := cfg.Live
	if l.ChunkLengthS <= 0 {
		return errors.New("live.chunk_length_s must be positive")
	}
	if l.Overlap < 0 || l.Overlap >= 0.9 {
		return errors.New("live.overlap must be in [0, 0.9)")
	}
	if l.SampleRate <= 0 {
		return errors.New("live.sample_rate must be positive")
	}
	if l.QueueSize <= 0 {
		return errors.New("live.queue_size must be >= 1")
	}
	switch l.QueuePolicy {
	case "block", "drop_oldest":
	default:
		return errors.New("live.queue_policy must be one of block|drop_oldest")
	}
	if l.DrainTimeoutMS < 0 || l.IdleIntervalMS <= 0 {
		return errors.New("live.drain_timeout_ms must be >= 0 and live.idle_interval_ms positive")
	}
	if l.UseLM && cfg.Models.Mode == "exec" && cfg.Models.LMCommand == "" {
		return errors.New("models.lm_command must be set when live.use_lm is enabled")
	}

	if cfg.HTTP.Enabled && (cfg.HTTP.Port <= 0 || cfg.HTTP.Port > 65535) {
		return errors.New("http.port must be between 1 and 65535")
	}
	if cfg.Bus.Enabled {
		if cfg.Bus.Embedded {
			if cfg.Bus.Port <= 0 || cfg.Bus.Port > 65535 {
				return errors.New("bus.port must be between 1 and 65535 when embedded mode is enabled")
			}
		} else if len(cfg.Bus.Servers) == 0 {
			return errors.New("bus.servers must not be empty when embedded mode is disabled")
		}
		if cfg.Bus.SubjectPrefix == "" {
			return errors.New("bus.subject_prefix must not be empty")
		}
	}
	if cfg.Store.Enabled && cfg.Store.Path == "" {
		return errors.New("store.path must not be empty when the store is enabled")
	}
	if cfg.Store.RetentionDays < 0 || cfg.Store.MaxSessions < 0 {
		return errors.New("store.retention_days and store.max_sessions must be >= 0")
	}
	switch cfg.LLM.Mode {
	case "mock":
	case "ollama":
		if cfg.LLM.Endpoint == "" {
			return errors.New("llm.endpoint must be set when mode=ollama")
		}
	case "exec":
		if cfg.LLM.Command == "" {
			return errors.New("llm.command must be set when mode=exec")
		}
	default:
		return errors.New("llm.mode must be one of mock|ollama|exec")
	}
	switch cfg.TTS.Mode {
	case "mock":
	case "exec":
		if cfg.TTS.Command == "" {
			return errors.New("tts.command must be set when mode=exec")
		}
	default:
		return errors.New("tts.mode must be one of mock|exec")
	}
	if cfg.TTS.SampleRate <= 0 {
		return errors.New("tts.sample_rate must be positive")
	}
	return nil
}
