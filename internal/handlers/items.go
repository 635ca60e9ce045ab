package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Brownie44l1/fundgrube-api/internal/domain"
	"github.com/Brownie44l1/fundgrube-api/internal/fundgrube"
)

// ReportItem accepts a multipart found/search report and answers with the
// stored record plus any matches of the opposite type.
func (h *Handler) ReportItem(w http.ResponseWriter, r *http.Request) {
	raw, filename, ok := h.readUpload(w, r)
	if !ok {
		return
	}

	typ, err := domain.ParseItemType(r.FormValue("type"))
	if err != nil {
		h.fail(w, r, "report item", err)
		return
	}

	var reward float64
	if v := strings.TrimSpace(r.FormValue("reward")); v != "" {
		reward, err = strconv.ParseFloat(strings.Replace(v, ",", ".", 1), 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "reward must be a number")
			return
		}
	}

	report, err := h.pipeline.Report(r.Context(), fundgrube.Submission{
		Image:    raw,
		Filename: filename,
		Type:     typ,
		Tags:     fundgrube.SplitTags(r.FormValue("tags")),
		Location: r.FormValue("location"),
		Reward:   reward,
		Label:    r.FormValue("label"),
	})
	if err != nil {
		h.fail(w, r, "report item", err)
		return
	}
	writeJSON(w, http.StatusCreated, report)
}

func (h *Handler) ListItems(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := domain.ItemFilter{Label: strings.TrimSpace(q.Get("label"))}

	if v := q.Get("type"); v != "" {
		typ, err := domain.ParseItemType(v)
		if err != nil {
			h.fail(w, r, "list items", err)
			return
		}
		filter.Type = typ
	}
	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		filter.Limit = limit
	}

	records, err := h.pipeline.Items(r.Context(), filter)
	if err != nil {
		h.fail(w, r, "list items", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": records, "count": len(records)})
}

func (h *Handler) GetItem(w http.ResponseWriter, r *http.Request) {
	rec, err := h.pipeline.Item(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, "get item", err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// FindMatches lists records of the complementary type carrying label.
// type is the type of the reporting item, not of the matches.
func (h *Handler) FindMatches(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	label := strings.TrimSpace(q.Get("label"))
	if label == "" {
		writeError(w, http.StatusBadRequest, "label is required")
		return
	}
	typ, err := domain.ParseItemType(q.Get("type"))
	if err != nil {
		h.fail(w, r, "find matches", err)
		return
	}

	matches, err := h.pipeline.Matches(r.Context(), label, typ)
	if err != nil {
		h.fail(w, r, "find matches", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"matches": matches, "count": len(matches)})
}
