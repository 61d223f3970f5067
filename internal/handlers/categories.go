// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"markethub/internal/cache"
	"markethub/internal/middleware"
	"markethub/internal/models"
	"markethub/internal/store"
	"markethub/internal/taxonomy"
)

// Categories serves the category admin API. The tree read goes through the
// read-through cache; every mutation flows through the engine, which
// invalidates that cache via its event sink.
type Categories struct {
	service *taxonomy.Service
	cache   *cache.Store
}

// NewCategories creates the category handler group. cacheStore may be nil,
// in which case tree reads always hit the database.
func NewCategories(service *taxonomy.Service, cacheStore *cache.Store) *Categories {
	return &Categories{service: service, cache: cacheStore}
}

// Tree handles GET /api/categories.
func (h *Categories) Tree(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.ListFilter{
		Country:         q.Get("country"),
		City:            q.Get("city"),
		Search:          q.Get("search"),
		IncludeInactive: q.Get("include_inactive") == "true",
		IncludeDeleted:  q.Get("include_deleted") == "true",
	}

	fetch := func(ctx context.Context) ([]byte, error) {
		forest, err := h.service.Tree(ctx, filter)
		if err != nil {
			return nil, err
		}
		return json.Marshal(map[string]any{"categories": forest})
	}

	var data []byte
	var err error
	if h.cache != nil {
		data, err = h.cache.WrapRead(r.Context(), cache.NamespaceCategories, treeCacheKey(filter), fetch)
	} else {
		data, err = fetch(r.Context())
	}
	if err != nil {
		respondError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// treeCacheKey encodes the filter into a stable cache key.
func treeCacheKey(f store.ListFilter) string {
	return fmt.Sprintf("tree:%s:%s:%s:%t:%t",
		url.QueryEscape(f.Country), url.QueryEscape(f.City), url.QueryEscape(f.Search),
		f.IncludeInactive, f.IncludeDeleted)
}

// Get handles GET /api/categories/{id}.
func (h *Categories) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	c, err := h.service.Get(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"category": c})
}

type createRequest struct {
	Name        string     `json:"name"`
	Slug        string     `json:"slug"`
	ParentID    *uuid.UUID `json:"parent_id"`
	SortOrder   *int       `json:"sort_order"`
	Country     string     `json:"country"`
	Cities      []string   `json:"cities"`
	IconKey     string     `json:"icon_key"`
	ImageURL    string     `json:"image_url"`
	Description string     `json:"description"`
	IsActive    *bool      `json:"is_active"`
}

// Create handles POST /api/categories.
func (h *Categories) Create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "Invalid JSON body.")
		return
	}
	if msg := validateCategoryFields(req.Name, req.Slug, req.Description, req.Country, req.Cities); msg != "" {
		badRequest(w, msg)
		return
	}

	created, err := h.service.Create(r.Context(), taxonomy.CreateInput{
		Name:        req.Name,
		Slug:        req.Slug,
		ParentID:    req.ParentID,
		SortOrder:   req.SortOrder,
		Country:     req.Country,
		Cities:      req.Cities,
		IconKey:     req.IconKey,
		ImageURL:    req.ImageURL,
		Description: req.Description,
		IsActive:    req.IsActive,
		ActorID:     middleware.ActorID(r.Context()),
	})
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"category": created})
}

// optionalUUID distinguishes an absent field from an explicit null.
type optionalUUID struct {
	Set   bool
	Value *uuid.UUID
}

func (o *optionalUUID) UnmarshalJSON(data []byte) error {
	o.Set = true
	if string(data) == "null" {
		o.Value = nil
		return nil
	}
	var id uuid.UUID
	if err := json.Unmarshal(data, &id); err != nil {
		return err
	}
	o.Value = &id
	return nil
}

type updateRequest struct {
	Name        *string      `json:"name"`
	Slug        *string      `json:"slug"`
	ParentID    optionalUUID `json:"parent_id"`
	SortOrder   *int         `json:"sort_order"`
	Country     *string      `json:"country"`
	Cities      *[]string    `json:"cities"`
	IconKey     *string      `json:"icon_key"`
	ImageURL    *string      `json:"image_url"`
	Description *string      `json:"description"`
	IsActive    *bool        `json:"is_active"`
}

// Update handles PUT /api/categories/{id}. Absent fields keep their current
// value; parent_id set to null explicitly promotes the category to a root.
func (h *Categories) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "Invalid JSON body.")
		return
	}
	if msg := validateUpdate(req); msg != "" {
		badRequest(w, msg)
		return
	}

	updated, err := h.service.Update(r.Context(), id, taxonomy.UpdateInput{
		Name:        req.Name,
		Slug:        req.Slug,
		Parent:      taxonomy.OptionalParent{Set: req.ParentID.Set, ID: req.ParentID.Value},
		SortOrder:   req.SortOrder,
		Country:     req.Country,
		Cities:      req.Cities,
		IconKey:     req.IconKey,
		ImageURL:    req.ImageURL,
		Description: req.Description,
		IsActive:    req.IsActive,
		ActorID:     middleware.ActorID(r.Context()),
	})
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"category": updated})
}

// Delete handles DELETE /api/categories/{id}. Query parameters: force=true
// to delete despite product usage, reassign_to=<id> to re-point products
// first.
func (h *Categories) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	opts := taxonomy.DeleteOptions{
		Force:   r.URL.Query().Get("force") == "true",
		ActorID: middleware.ActorID(r.Context()),
	}
	if raw := r.URL.Query().Get("reassign_to"); raw != "" {
		target, err := uuid.Parse(raw)
		if err != nil {
			badRequest(w, "Invalid reassign_to id.")
			return
		}
		opts.ReassignTargetID = &target
	}

	res, err := h.service.SoftDelete(r.Context(), id, opts)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"result": res})
}

// Restore handles POST /api/categories/{id}/restore.
func (h *Categories) Restore(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	ids, err := h.service.Restore(r.Context(), id, middleware.ActorID(r.Context()))
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"restored": ids})
}

type reorderRequest struct {
	Items             []taxonomy.ReorderItem `json:"items"`
	AllowParentChange bool                   `json:"allow_parent_change"`
}

// Reorder handles POST /api/categories/reorder.
func (h *Categories) Reorder(w http.ResponseWriter, r *http.Request) {
	var req reorderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "Invalid JSON body.")
		return
	}
	if len(req.Items) > maxReorderItems {
		badRequest(w, "Too many reorder items (max 1,000).")
		return
	}

	if err := h.service.Reorder(r.Context(), req.Items, req.AllowParentChange, middleware.ActorID(r.Context())); err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"reordered": len(req.Items)})
}

type reassignRequest struct {
	TargetID        uuid.UUID `json:"target_id"`
	IncludeChildren bool      `json:"include_children"`
}

// Reassign handles POST /api/categories/{id}/reassign.
func (h *Categories) Reassign(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	var req reassignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "Invalid JSON body.")
		return
	}
	if req.TargetID == uuid.Nil {
		badRequest(w, "target_id is required.")
		return
	}

	n, err := h.service.Reassign(r.Context(), id, req.TargetID, req.IncludeChildren, middleware.ActorID(r.Context()))
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"reassigned_products": n})
}

type importRequest struct {
	Tree    []taxonomy.ImportNode `json:"tree"`
	Country string                `json:"country"`
	DryRun  bool                  `json:"dry_run"`
}

// Import handles POST /api/categories/import.
func (h *Categories) Import(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "Invalid JSON body.")
		return
	}
	if countImportNodes(req.Tree) > maxImportNodes {
		badRequest(w, "Import tree is too large (max 2,000 nodes).")
		return
	}

	res, err := h.service.Import(r.Context(), req.Tree, req.Country, req.DryRun, middleware.ActorID(r.Context()))
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"result": res, "summary": res.Summary()})
}

func countImportNodes(tree []taxonomy.ImportNode) int {
	n := len(tree)
	for _, node := range tree {
		n += countImportNodes(node.Children)
	}
	return n
}

// Export handles GET /api/categories/export.
func (h *Categories) Export(w http.ResponseWriter, r *http.Request) {
	nodes, err := h.service.Export(r.Context(), r.URL.Query().Get("country"))
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tree": nodes})
}

// AuditLog handles GET /api/categories/audit.
func (h *Categories) AuditLog(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var filter store.AuditFilter
	if raw := q.Get("entity_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			badRequest(w, "Invalid entity_id.")
			return
		}
		filter.EntityID = &id
	}
	if raw := q.Get("action"); raw != "" {
		filter.Action = models.AuditAction(raw)
	}

	page := intQuery(q.Get("page"), 1)
	perPage := intQuery(q.Get("per_page"), 20)

	entries, total, err := h.service.AuditLog(r.Context(), filter, page, perPage)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"entries":  entries,
		"total":    total,
		"page":     page,
		"per_page": perPage,
	})
}

func intQuery(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}

// parseID extracts the {id} URL parameter. On failure it writes the error
// response and returns false.
func parseID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		badRequest(w, "Invalid category id.")
		return uuid.Nil, false
	}
	return id, true
}
