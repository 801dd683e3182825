// Package slotrunner - Status-Datensaetze
//
// Dieses Modul enthaelt:
// - statusPayload: JSON-Form des finalen Status-Datensatzes
// - slotStatus / admissionStatus: Aufbau der Datensaetze
package slotrunner

import (
	"encoding/json"
	"log/slog"
	"time"
)

// statusPayload wird einmal pro finalisiertem Request in den
// Readback-Puffer geschrieben.
type statusPayload struct {
	SlotID             int     `json:"slotId"`
	SlotRequestID      int     `json:"slotRequestId"`
	JobIndex           int     `json:"jobIndex"`
	PromptTokens       int     `json:"promptTokens"`
	GenTokens          int     `json:"genTokens"`
	PromptSec          float64 `json:"promptSec"`
	GenSec             float64 `json:"genSec"`
	TotalSec           float64 `json:"totalSec"`
	GenTokensPerSec    float64 `json:"genTokensPerSec"`
	PromptTokensPerSec float64 `json:"promptTokensPerSec"`
	FinishReason       string  `json:"finishReason"`
	StopToken          string  `json:"stopToken"`
}

func (p statusPayload) encode() string {
	data, err := json.Marshal(p)
	if err != nil {
		// Nur Zahlen und Strings im Payload, darf nicht passieren
		slog.Error("failed to encode status", "error", err)
		return `{"finishReason":"Unspecified","stopToken":""}`
	}
	return string(data)
}

func rate(tokens int, sec float64) float64 {
	if sec <= 0 {
		return 0
	}
	return float64(tokens) / sec
}

// slotStatus baut den Status-Datensatz eines Slots auf.
func slotStatus(slot *Slot, reason string) string {
	now := time.Now()

	start := slot.slotStart
	promptEnd := slot.promptEnd
	if promptEnd.IsZero() {
		promptEnd = now
	}
	genEnd := slot.generating
	if genEnd.IsZero() {
		genEnd = now
	}

	promptSec := promptEnd.Sub(start).Seconds()
	genSec := genEnd.Sub(promptEnd).Seconds()

	return statusPayload{
		SlotID:             slot.id,
		SlotRequestID:      int(slot.requestID.Load()),
		JobIndex:           slot.jobIndex,
		PromptTokens:       len(slot.promptTokens),
		GenTokens:          slot.tokensGenerated,
		PromptSec:          promptSec,
		GenSec:             genSec,
		TotalSec:           genEnd.Sub(start).Seconds(),
		GenTokensPerSec:    rate(slot.tokensGenerated, genSec),
		PromptTokensPerSec: rate(len(slot.promptTokens), promptSec),
		FinishReason:       reason,
		StopToken:          slot.stopToken,
	}.encode()
}

// admissionStatus baut den Status-Datensatz eines Requests auf, der nie
// einen Slot belegt hat.
func admissionStatus(requestID int, reason string) string {
	return statusPayload{
		SlotID:        -1,
		SlotRequestID: requestID,
		JobIndex:      -1,
		FinishReason:  reason,
	}.encode()
}
