package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/signalsfoundry/orbiter/core"
	"github.com/signalsfoundry/orbiter/internal/logging"
	"github.com/signalsfoundry/orbiter/internal/orbiter"
	"github.com/signalsfoundry/orbiter/internal/render/svg"
	"github.com/signalsfoundry/orbiter/internal/tle"
	"github.com/signalsfoundry/orbiter/kb"
	"github.com/signalsfoundry/orbiter/model"
)

// sceneFromQuery accepts one of three forms:
//
//	?body=jupiter
//	?tle1=...&tle2=...&name=ISS[&at=2008-09-20T18:00:00Z]
//	?a=1.5&e=0.2
//
// plus optional rate and motion parameters.
func (a *api) sceneFromQuery(r *http.Request) (orbiter.Scene, error) {
	q := r.URL.Query()
	ctx := r.Context()

	motion, err := core.ParseMotionKind(q.Get("motion"))
	if err != nil {
		return orbiter.Scene{}, err
	}
	var rate float64
	if s := q.Get("rate"); s != "" {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return orbiter.Scene{}, &core.InvalidParameterError{Field: "animation_rate", Value: s, Reason: "not a number"}
		}
		rate = v
	}

	switch {
	case q.Get("body") != "":
		return a.svc.SetOrbitForBody(ctx, q.Get("body"), rate, motion)
	case q.Get("tle1") != "" || q.Get("tle2") != "":
		at := time.Now()
		if s := q.Get("at"); s != "" {
			if at, err = time.Parse(time.RFC3339, s); err != nil {
				return orbiter.Scene{}, &core.InvalidParameterError{Field: "at", Value: s, Reason: "not an RFC 3339 time"}
			}
		}
		return a.svc.SetOrbitFromTLE(ctx, q.Get("name"), q.Get("tle1"), q.Get("tle2"), at, rate, motion)
	}

	in, err := orbiter.ParseInput(q.Get("a"), q.Get("e"), q.Get("rate"))
	if err != nil {
		return orbiter.Scene{}, err
	}
	in.Motion = motion
	in.Body = model.Body{Name: q.Get("name")}
	return a.svc.SetOrbit(ctx, in)
}

func (a *api) handleOrbit(w http.ResponseWriter, r *http.Request) {
	scene, err := a.sceneFromQuery(r)
	if err != nil {
		a.writeSceneError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, scene.View())
}

func (a *api) handleSVG(w http.ResponseWriter, r *http.Request) {
	scene, err := a.sceneFromQuery(r)
	if err != nil {
		a.writeSceneError(w, r, err)
		return
	}
	static := r.URL.Query().Get("static")
	w.Header().Set("Content-Type", "image/svg+xml")
	if err := svg.Render(w, scene, svg.Options{Static: static == "1" || strings.EqualFold(static, "true")}); err != nil {
		logging.FromContext(r.Context(), a.log).Warn(r.Context(), "svg write failed", logging.Err(err))
	}
}

func (a *api) handleBodies(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, a.svc.Catalog().List())
}

func (a *api) handleBody(w http.ResponseWriter, r *http.Request) {
	b, err := a.svc.Catalog().Get(r.PathValue("id"))
	if err != nil {
		a.writeSceneError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

const maxBodyBytes = 1 << 16

func (a *api) handleAddBody(w http.ResponseWriter, r *http.Request) {
	var b model.Body
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&b); err != nil {
		writeError(w, http.StatusBadRequest, "decode body: "+err.Error())
		return
	}
	if b.CentralBody == "" {
		b.CentralBody = "Sun"
	}
	if err := a.svc.Catalog().Add(b); err != nil {
		a.writeSceneError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

func (a *api) handleRemoveBody(w http.ResponseWriter, r *http.Request) {
	if err := a.svc.Catalog().Remove(r.PathValue("id")); err != nil {
		a.writeSceneError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrInvalidParameter), errors.Is(err, tle.ErrInvalidTLE), errors.Is(err, kb.ErrBodyInvalid):
		return http.StatusBadRequest
	case errors.Is(err, orbiter.ErrBodyNotFound):
		return http.StatusNotFound
	case errors.Is(err, kb.ErrBodyExists):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (a *api) writeSceneError(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		logging.FromContext(r.Context(), a.log).Error(r.Context(), "scene computation failed", logging.Err(err))
	}
	writeError(w, code, err.Error())
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
