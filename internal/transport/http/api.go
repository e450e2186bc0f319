package http

import (
	"context"
	"net/http"
	"strconv"
)

type startMeetingRequest struct {
	Title         string `json:"title"`
	SaveToHistory bool   `json:"save_to_history"`
}

type idResponse struct {
	ID int64 `json:"id"`
}

type activeMeetingResponse struct {
	Active bool  `json:"active"`
	ID     int64 `json:"id,omitempty"`
}

type speakRequest struct {
	Text string `json:"text"`
}

type translateStopRequest struct {
	Target string `json:"target"`
}

type ttsStatusResponse struct {
	Running bool `json:"running"`
}

// handleStartMeeting starts a meeting.
//
// @Summary     Start a meeting
// @Description Creates a meeting record, opens the microphone and begins chunked transcription.
// @Tags        meetings
// @Accept      json
// @Produce     json
// @Param       request  body      startMeetingRequest  false  "Optional title and save-to-history flag"
// @Success     201  {object}  idResponse
// @Failure     409  {object}  errorResponse  "A meeting is already in progress"
// @Failure     503  {object}  errorResponse  "Audio capture unavailable"
// @Router      /meetings/start [post]
func (t *Transport) handleStartMeeting(w http.ResponseWriter, r *http.Request) {
	var req startMeetingRequest
	if !decodeOptional(w, r, &req) {
		return
	}
	id, err := t.deps.Meetings.Start(r.Context(), req.Title, req.SaveToHistory)
	if err != nil {
		t.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, idResponse{ID: id})
}

// handleStopMeeting stops the active meeting.
//
// @Summary     Stop the active meeting
// @Description Finalizes the running meeting. Succeeds when no meeting is running.
// @Tags        meetings
// @Success     204
// @Router      /meetings/stop [post]
func (t *Transport) handleStopMeeting(w http.ResponseWriter, r *http.Request) {
	if err := t.deps.Meetings.Stop(r.Context()); err != nil {
		t.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// @Summary     Active meeting
// @Tags        meetings
// @Produce     json
// @Success     200  {object}  activeMeetingResponse
// @Router      /meetings/active [get]
func (t *Transport) handleActiveMeeting(w http.ResponseWriter, _ *http.Request) {
	id, ok := t.deps.Meetings.ActiveID()
	writeJSON(w, http.StatusOK, activeMeetingResponse{Active: ok, ID: id})
}

// @Summary     List meetings
// @Tags        meetings
// @Produce     json
// @Success     200  {array}  store.Meeting
// @Router      /meetings [get]
func (t *Transport) handleListMeetings(w http.ResponseWriter, r *http.Request) {
	ms, err := t.deps.Meetings.Meetings(r.Context())
	if err != nil {
		t.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ms)
}

// @Summary     Meeting details
// @Tags        meetings
// @Produce     json
// @Param       id  path  int  true  "Meeting id"
// @Success     200  {object}  meeting.Details
// @Failure     404  {object}  errorResponse
// @Router      /meetings/{id} [get]
func (t *Transport) handleMeetingDetails(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	d, err := t.deps.Meetings.Details(r.Context(), id)
	if err != nil {
		t.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// @Summary     Meeting recording
// @Tags        meetings
// @Produce     audio/wav
// @Param       id  path  int  true  "Meeting id"
// @Success     200  {file}  binary
// @Failure     404  {object}  errorResponse
// @Router      /meetings/{id}/audio [get]
func (t *Transport) handleMeetingAudio(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	d, err := t.deps.Meetings.Details(r.Context(), id)
	if err != nil {
		t.writeError(w, r, err)
		return
	}
	if d.AudioPath == "" {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "meeting has no recording"})
		return
	}
	w.Header().Set("Content-Type", "audio/wav")
	http.ServeFile(w, r, d.AudioPath)
}

// @Summary     Toggle meeting favorite
// @Tags        meetings
// @Param       id  path  int  true  "Meeting id"
// @Success     204
// @Failure     404  {object}  errorResponse
// @Router      /meetings/{id}/favorite [post]
func (t *Transport) handleToggleMeetingFavorite(w http.ResponseWriter, r *http.Request) {
	t.mutate(w, r, t.deps.Meetings.ToggleFavorite)
}

// @Summary     Delete a meeting
// @Tags        meetings
// @Param       id  path  int  true  "Meeting id"
// @Success     204
// @Failure     404  {object}  errorResponse
// @Failure     409  {object}  errorResponse  "Meeting is still recording"
// @Router      /meetings/{id} [delete]
func (t *Transport) handleDeleteMeeting(w http.ResponseWriter, r *http.Request) {
	t.mutate(w, r, t.deps.Meetings.Delete)
}

// @Summary     Transcription history
// @Tags        history
// @Produce     json
// @Success     200  {array}  store.HistoryEntry
// @Router      /history [get]
func (t *Transport) handleListHistory(w http.ResponseWriter, r *http.Request) {
	entries, err := t.deps.History.History(r.Context())
	if err != nil {
		t.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// @Summary     History recording
// @Tags        history
// @Produce     audio/wav
// @Param       id  path  int  true  "History entry id"
// @Success     200  {file}  binary
// @Failure     404  {object}  errorResponse
// @Router      /history/{id}/audio [get]
func (t *Transport) handleHistoryAudio(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	e, err := t.deps.History.HistoryEntry(r.Context(), id)
	if err != nil {
		t.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "audio/wav")
	http.ServeFile(w, r, t.deps.History.AudioFilePath(e.FileName))
}

// @Summary     Toggle saved flag
// @Description Saved entries are exempt from retention cleanup.
// @Tags        history
// @Param       id  path  int  true  "History entry id"
// @Success     204
// @Failure     404  {object}  errorResponse
// @Router      /history/{id}/saved [post]
func (t *Transport) handleToggleSaved(w http.ResponseWriter, r *http.Request) {
	t.mutate(w, r, t.deps.History.ToggleSaved)
}

// @Summary     Delete a history entry
// @Tags        history
// @Param       id  path  int  true  "History entry id"
// @Success     204
// @Failure     404  {object}  errorResponse
// @Router      /history/{id} [delete]
func (t *Transport) handleDeleteHistory(w http.ResponseWriter, r *http.Request) {
	t.mutate(w, r, t.deps.History.DeleteHistoryEntry)
}

// @Summary     Speech service status
// @Tags        tts
// @Produce     json
// @Success     200  {object}  ttsStatusResponse
// @Router      /tts/status [get]
func (t *Transport) handleTTSStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, ttsStatusResponse{Running: t.deps.Service.IsRunning()})
}

// @Summary     Available voices
// @Tags        tts
// @Produce     json
// @Success     200  {array}  string
// @Router      /tts/voices [get]
func (t *Transport) handleTTSVoices(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, t.deps.Speaker.Voices())
}

// @Summary     Speech service diagnostics
// @Tags        tts
// @Produce     json
// @Success     200  {object}  supervisor.Diagnostics
// @Router      /tts/diagnostics [get]
func (t *Transport) handleTTSDiagnostics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, t.deps.Service.Diagnostics(r.Context()))
}

// handleSpeak synthesizes text and returns the audio.
//
// @Summary     Synthesize speech
// @Tags        tts
// @Accept      json
// @Produce     audio/wav
// @Param       request  body  speakRequest  true  "Text to speak"
// @Success     200  {file}  binary
// @Header      200  {string}  X-Murmur-File  "Saved recording name"
// @Failure     400  {object}  errorResponse
// @Failure     503  {object}  errorResponse  "Speech service not running"
// @Router      /tts/speak [post]
func (t *Transport) handleSpeak(w http.ResponseWriter, r *http.Request) {
	var req speakRequest
	if !decodeOptional(w, r, &req) {
		return
	}
	res, err := t.deps.Speaker.Speak(r.Context(), req.Text)
	if err != nil {
		t.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", res.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(res.Audio)))
	if res.FileName != "" {
		w.Header().Set("X-Murmur-File", res.FileName)
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(res.Audio)
}

// @Summary     Synthesis history
// @Tags        tts
// @Produce     json
// @Success     200  {array}  store.TTSEntry
// @Router      /tts/history [get]
func (t *Transport) handleTTSHistory(w http.ResponseWriter, r *http.Request) {
	entries, err := t.deps.History.TTSHistory(r.Context())
	if err != nil {
		t.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// @Summary     Toggle synthesis favorite
// @Tags        tts
// @Param       id  path  int  true  "TTS entry id"
// @Success     204
// @Failure     404  {object}  errorResponse
// @Router      /tts/history/{id}/favorite [post]
func (t *Transport) handleToggleTTSFavorite(w http.ResponseWriter, r *http.Request) {
	t.mutate(w, r, t.deps.History.ToggleTTSFavorite)
}

// @Summary     Delete a synthesis entry
// @Tags        tts
// @Param       id  path  int  true  "TTS entry id"
// @Success     204
// @Failure     404  {object}  errorResponse
// @Router      /tts/history/{id} [delete]
func (t *Transport) handleDeleteTTS(w http.ResponseWriter, r *http.Request) {
	t.mutate(w, r, t.deps.History.DeleteTTSEntry)
}

// @Summary     Start a voice translation capture
// @Tags        translate
// @Success     204
// @Failure     409  {object}  errorResponse  "Microphone is busy"
// @Router      /translate/start [post]
func (t *Transport) handleTranslateStart(w http.ResponseWriter, r *http.Request) {
	if err := t.deps.Translator.Start(); err != nil {
		t.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// @Summary     Stop capture and translate
// @Description Only English targets are translated; any other target returns the original text.
// @Tags        translate
// @Accept      json
// @Produce     json
// @Param       request  body      translateStopRequest  false  "Target language (default en)"
// @Success     200  {object}  translate.Result
// @Failure     400  {object}  errorResponse  "No audio captured"
// @Router      /translate/stop [post]
func (t *Transport) handleTranslateStop(w http.ResponseWriter, r *http.Request) {
	req := translateStopRequest{Target: "en"}
	if !decodeOptional(w, r, &req) {
		return
	}
	res, err := t.deps.Translator.Stop(r.Context(), req.Target)
	if err != nil {
		t.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// mutate runs an id-addressed state change and replies 204.
func (t *Transport) mutate(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, id int64) error) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := fn(r.Context(), id); err != nil {
		t.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
