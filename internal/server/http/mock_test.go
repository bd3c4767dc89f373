package http

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/ekisa-team/voicemagic/internal/artifact"
	"github.com/ekisa-team/voicemagic/internal/service"
	"github.com/ekisa-team/voicemagic/internal/voice"
)

// MockSynthesizer is a mock implementation of Synthesizer.
type MockSynthesizer struct {
	mock.Mock
}

func (m *MockSynthesizer) Synthesize(ctx context.Context, req service.SynthesisRequest) (*artifact.Artifact, error) {
	args := m.Called(ctx, req)
	a, _ := args.Get(0).(*artifact.Artifact)
	return a, args.Error(1)
}

func (m *MockSynthesizer) Voices() []voice.Voice {
	return voice.Default().List()
}

func (m *MockSynthesizer) DefaultVoice() voice.Voice {
	v, _ := voice.Default().Resolve(voice.DefaultName)
	return v
}

func (m *MockSynthesizer) Open(id string) (*artifact.Artifact, []byte, error) {
	args := m.Called(id)
	a, _ := args.Get(0).(*artifact.Artifact)
	data, _ := args.Get(1).([]byte)
	return a, data, args.Error(2)
}

const testArtifactID = "5f0c6a0e-8b8f-4f53-a4f4-3f8a2c1d9e77"

func testArtifact() *artifact.Artifact {
	return &artifact.Artifact{
		ID:       testArtifactID,
		VoiceID:  "en-US-GuyNeural",
		Size:     4,
		MIMEType: artifact.MIMETypeMP3,
	}
}
