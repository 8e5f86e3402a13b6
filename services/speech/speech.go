// Copyright (C) 2025 Domovenok AI (bots@domovenok.ru)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package speech defines the engine's speech collaborators — speech-to-text
// and text-to-speech — as narrow interfaces, plus HTTP client adapters for
// external recognition/synthesis services.
//
// The dialog engine only ever produces text; whether a reply is rendered as
// voice is a transport-layer decision.
package speech

import "context"

// Recognizer converts voice audio into text.
//
// An empty result string with a nil error means the audio carried no
// recognizable speech; the caller reports a recognition failure to the
// user. A non-nil error means the recognition service itself failed.
type Recognizer interface {
	Recognize(ctx context.Context, audio []byte) (string, error)
}

// Synthesizer renders reply text as voice audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}
