package envvar

const (
	// VoicemagicEnv is the environment variable used to determine the environment
	VoicemagicEnv = "VOICEMAGIC_ENV"

	// VoicemagicServerHTTPPort is the environment variable used to determine the HTTP port
	VoicemagicServerHTTPPort = "VOICEMAGIC_SERVER_HTTP_PORT"

	// VoicemagicServerGRPCPort is the environment variable used to determine the gRPC port
	VoicemagicServerGRPCPort = "VOICEMAGIC_SERVER_GRPC_PORT"

	// VoicemagicOutputDir is the environment variable used to override the artifact directory
	VoicemagicOutputDir = "VOICEMAGIC_OUTPUT_DIR"

	// VoicemagicEdgeTTSPath is the environment variable used to locate the edge-tts binary
	VoicemagicEdgeTTSPath = "VOICEMAGIC_EDGE_TTS_PATH"

	// VoicemagicEdgeTTSProxy is the environment variable used to route edge-tts through a proxy
	VoicemagicEdgeTTSProxy = "VOICEMAGIC_EDGE_TTS_PROXY"

	// VoicemagicLogLevel is the environment variable used to set the log level
	VoicemagicLogLevel = "VOICEMAGIC_LOG_LEVEL"

	// VoicemagicAnalyticsID is the environment variable used to enable the analytics tag
	VoicemagicAnalyticsID = "VOICEMAGIC_ANALYTICS_ID"
)
