package handlers

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"famwell/internal/domain"
	"famwell/internal/infra"
	"famwell/internal/sqlinline"
	"famwell/pkg/archive"
)

type wellnessUpsertRequest struct {
	EntryDate       string  `json:"entry_date"`
	Mood            int     `json:"mood"`
	SleepHours      float64 `json:"sleep_hours"`
	ExerciseMinutes int     `json:"exercise_minutes"`
	Stress          int     `json:"stress"`
	Note            string  `json:"note"`
}

type wellnessEntryDTO struct {
	ID              string  `json:"id"`
	UserID          string  `json:"user_id"`
	EntryDate       string  `json:"entry_date"`
	Mood            int     `json:"mood"`
	SleepHours      float64 `json:"sleep_hours"`
	ExerciseMinutes int     `json:"exercise_minutes"`
	Stress          int     `json:"stress"`
	Note            string  `json:"note"`
}

const dateLayout = "2006-01-02"

// WellnessUpsert records or replaces the caller's entry for one day.
func (a *App) WellnessUpsert(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	var req wellnessUpsertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	entryDate, err := time.Parse(dateLayout, req.EntryDate)
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "entry_date must be YYYY-MM-DD")
		return
	}
	entry := domain.WellnessEntry{
		UserID:          userID,
		EntryDate:       entryDate,
		Mood:            req.Mood,
		SleepHours:      req.SleepHours,
		ExerciseMinutes: req.ExerciseMinutes,
		Stress:          req.Stress,
		Note:            req.Note,
	}
	if err := entry.Validate(); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	var id string
	err = a.SQL.QueryRow(r.Context(), sqlinline.QUpsertWellnessEntry,
		userID, entryDate.Format(dateLayout), entry.Mood, entry.SleepHours, entry.ExerciseMinutes, entry.Stress, entry.Note,
	).Scan(&id)
	if err != nil {
		a.Logger.Error().Err(err).Msg("upsert wellness entry failed")
		a.error(w, http.StatusInternalServerError, "internal", "internal error")
		return
	}
	entry.ID = id
	a.json(w, http.StatusOK, entryToDTO(entry))
}

// WellnessList returns entries for a date range. Family members may read each
// other's entries; everyone else is rejected.
func (a *App) WellnessList(w http.ResponseWriter, r *http.Request) {
	targetID, from, to, ok := a.wellnessQuery(w, r)
	if !ok {
		return
	}
	entries, err := a.listEntries(r, targetID, from, to)
	if err != nil {
		a.Logger.Error().Err(err).Msg("list wellness entries failed")
		a.error(w, http.StatusInternalServerError, "internal", "internal error")
		return
	}
	items := make([]wellnessEntryDTO, 0, len(entries))
	for _, e := range entries {
		items = append(items, entryToDTO(e))
	}
	a.json(w, http.StatusOK, map[string]any{"items": items})
}

// WellnessSummary aggregates a date range into trend figures.
func (a *App) WellnessSummary(w http.ResponseWriter, r *http.Request) {
	targetID, from, to, ok := a.wellnessQuery(w, r)
	if !ok {
		return
	}
	summary := domain.WellnessSummary{From: from, To: to}
	err := a.SQL.QueryRow(r.Context(), sqlinline.QWellnessSummary,
		targetID, from.Format(dateLayout), to.Format(dateLayout),
	).Scan(&summary.Entries, &summary.AvgMood, &summary.AvgSleepHours, &summary.AvgStress, &summary.TotalExerciseMin)
	if err != nil {
		a.Logger.Error().Err(err).Msg("wellness summary failed")
		a.error(w, http.StatusInternalServerError, "internal", "internal error")
		return
	}
	a.json(w, http.StatusOK, map[string]any{
		"entries":            summary.Entries,
		"avg_mood":           summary.AvgMood,
		"avg_sleep_hours":    summary.AvgSleepHours,
		"avg_stress":         summary.AvgStress,
		"total_exercise_min": summary.TotalExerciseMin,
		"from":               summary.From.Format(dateLayout),
		"to":                 summary.To.Format(dateLayout),
	})
}

// WellnessExport streams the range as a zip containing a CSV file.
func (a *App) WellnessExport(w http.ResponseWriter, r *http.Request) {
	targetID, from, to, ok := a.wellnessQuery(w, r)
	if !ok {
		return
	}
	entries, err := a.listEntries(r, targetID, from, to)
	if err != nil {
		a.Logger.Error().Err(err).Msg("export wellness entries failed")
		a.error(w, http.StatusInternalServerError, "internal", "internal error")
		return
	}

	buf := &bytes.Buffer{}
	cw := csv.NewWriter(buf)
	_ = cw.Write([]string{"entry_date", "mood", "sleep_hours", "exercise_minutes", "stress", "note"})
	for _, e := range entries {
		_ = cw.Write([]string{
			e.EntryDate.Format(dateLayout),
			strconv.Itoa(e.Mood),
			strconv.FormatFloat(e.SleepHours, 'f', 1, 64),
			strconv.Itoa(e.ExerciseMinutes),
			strconv.Itoa(e.Stress),
			e.Note,
		})
	}
	cw.Flush()

	name := fmt.Sprintf("wellness_%s_%s.csv", from.Format(dateLayout), to.Format(dateLayout))
	data := archive.Build([]archive.File{{Name: name, MIME: "text/csv", Data: buf.Bytes()}})
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="wellness_export.zip"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func entryToDTO(e domain.WellnessEntry) wellnessEntryDTO {
	return wellnessEntryDTO{
		ID:              e.ID,
		UserID:          e.UserID,
		EntryDate:       e.EntryDate.Format(dateLayout),
		Mood:            e.Mood,
		SleepHours:      e.SleepHours,
		ExerciseMinutes: e.ExerciseMinutes,
		Stress:          e.Stress,
		Note:            e.Note,
	}
}

// wellnessQuery resolves the target user and date range from query params,
// enforcing the family boundary when reading someone else's data.
func (a *App) wellnessQuery(w http.ResponseWriter, r *http.Request) (string, time.Time, time.Time, bool) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return "", time.Time{}, time.Time{}, false
	}
	targetID := r.URL.Query().Get("user_id")
	if targetID == "" {
		targetID = userID
	}
	if targetID != userID && !a.sameFamily(r, userID, targetID) {
		a.error(w, http.StatusForbidden, "forbidden", "not in the same family")
		return "", time.Time{}, time.Time{}, false
	}

	now := time.Now().UTC()
	from := now.AddDate(0, 0, -30)
	to := now
	if v := r.URL.Query().Get("from"); v != "" {
		parsed, err := time.Parse(dateLayout, v)
		if err != nil {
			a.error(w, http.StatusBadRequest, "bad_request", "from must be YYYY-MM-DD")
			return "", time.Time{}, time.Time{}, false
		}
		from = parsed
	}
	if v := r.URL.Query().Get("to"); v != "" {
		parsed, err := time.Parse(dateLayout, v)
		if err != nil {
			a.error(w, http.StatusBadRequest, "bad_request", "to must be YYYY-MM-DD")
			return "", time.Time{}, time.Time{}, false
		}
		to = parsed
	}
	if to.Before(from) {
		a.error(w, http.StatusBadRequest, "bad_request", "to must not precede from")
		return "", time.Time{}, time.Time{}, false
	}
	return targetID, from, to, true
}

func (a *App) sameFamily(r *http.Request, callerID, targetID string) bool {
	callerFamily, err := a.familyOf(r, callerID)
	if err != nil || callerFamily == "" {
		return false
	}
	targetFamily, err := a.familyOf(r, targetID)
	if err != nil {
		return false
	}
	return callerFamily == targetFamily
}

func (a *App) familyOf(r *http.Request, userID string) (string, error) {
	var familyID *string
	err := a.SQL.QueryRow(r.Context(), sqlinline.QSelectUserFamily, userID).Scan(&familyID)
	if err != nil {
		if infra.IsNoRows(err) {
			return "", domain.ErrNotFound
		}
		return "", err
	}
	if familyID == nil {
		return "", nil
	}
	return *familyID, nil
}

func (a *App) listEntries(r *http.Request, userID string, from, to time.Time) ([]domain.WellnessEntry, error) {
	rows, err := a.SQL.Query(r.Context(), sqlinline.QListWellnessEntries,
		userID, from.Format(dateLayout), to.Format(dateLayout))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.WellnessEntry
	for rows.Next() {
		var e domain.WellnessEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.EntryDate, &e.Mood, &e.SleepHours, &e.ExerciseMinutes, &e.Stress, &e.Note, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
