// Copyright (C) 2025 Domovenok AI (bots@domovenok.ru)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package dialog

import "errors"

// Sentinel errors for the engine's error taxonomy.
//
// ErrNoMatch is the expected "nothing fits" outcome; everything else is an
// internal failure that should be observable. Respond is the catch boundary:
// callers receive user-facing reply strings, never these errors directly.
var (
	// ErrConfig reports missing or malformed intent configuration, such as
	// an intent with neither the user's topic nor an "any" fallback topic.
	// Fatal at startup; converted to a generic failure reply at runtime.
	ErrConfig = errors.New("dialog: invalid configuration")

	// ErrTraining reports an insufficient or failed classifier fit
	// (fewer than 2 labels or 5 examples). Fatal at startup, never retried.
	ErrTraining = errors.New("dialog: classifier training failed")

	// ErrRecognition reports that speech-to-text produced nothing usable.
	// Reported to the user verbatim as VoiceFailureReply, not retried.
	ErrRecognition = errors.New("dialog: voice recognition failed")

	// ErrNoMatch reports that neither the classifier nor the fallback
	// matcher produced a usable answer. Expected and common; the caller
	// substitutes a random generic failure reply.
	ErrNoMatch = errors.New("dialog: no matching answer")
)

// VoiceFailureReply is the fixed user-facing reply for ErrRecognition.
const VoiceFailureReply = "Не удалось распознать голосовое сообщение"
