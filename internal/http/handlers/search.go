package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/silknow/explorer-api/internal/http/response"
	"github.com/silknow/explorer-api/internal/platform/apierr"
	"github.com/silknow/explorer-api/internal/platform/logger"
	"github.com/silknow/explorer-api/internal/search"
	"github.com/silknow/explorer-api/internal/similarity"
)

const (
	filterParamPrefix    = "filter_"
	conditionParamPrefix = "condition_"
	defaultLanguage      = "en"
)

type SearchHandler struct {
	log         *logger.Logger
	service     search.Service
	similarity  similarity.Client
	defaultLang string
}

func NewSearchHandler(log *logger.Logger, svc search.Service, sim similarity.Client, defaultLang string) (*SearchHandler, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if svc == nil {
		return nil, fmt.Errorf("search service required")
	}
	if defaultLang == "" {
		defaultLang = defaultLanguage
	}
	return &SearchHandler{
		log:         log.With("handler", "SearchHandler"),
		service:     svc,
		similarity:  sim,
		defaultLang: defaultLang,
	}, nil
}

// Search handles GET /api/search.
func (h *SearchHandler) Search(c *gin.Context) {
	req := h.parseRequest(c)
	if req.RouteType == "" {
		response.RespondError(c, http.StatusBadRequest, "missing_type", errors.New("type parameter is required"))
		return
	}

	if imageURL := strings.TrimSpace(c.Query("similar_to")); imageURL != "" && h.similarity != nil {
		// Collaborator failure degrades to an unrestricted search.
		res, err := h.similarity.SimilarByURI(c.Request.Context(), imageURL)
		if err != nil {
			h.log.Warn("similarity lookup failed", "error", err)
		} else {
			req.SimilarURIs = res.URIs()
		}
	}

	result, err := h.service.Search(c.Request.Context(), req, sessionToken(c))
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	response.RespondOK(c, result)
}

// Detail handles GET /api/detail.
func (h *SearchHandler) Detail(c *gin.Context) {
	routeType := c.Query("type")
	id := c.Query("id")
	if routeType == "" || id == "" {
		response.RespondError(c, http.StatusBadRequest, "missing_params", errors.New("type and id parameters are required"))
		return
	}
	record, err := h.service.Detail(c.Request.Context(), routeType, id, h.language(c))
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	if record == nil {
		response.RespondError(c, http.StatusNotFound, "not_found", fmt.Errorf("no record for %s", id))
		return
	}
	response.RespondOK(c, record)
}

// Autocomplete handles GET /api/autocomplete.
func (h *SearchHandler) Autocomplete(c *gin.Context) {
	routeType := c.Query("type")
	filterID := c.Query("filter")
	if routeType == "" || filterID == "" {
		response.RespondError(c, http.StatusBadRequest, "missing_params", errors.New("type and filter parameters are required"))
		return
	}
	options, total, err := h.service.Autocomplete(c.Request.Context(), routeType, filterID, c.Query("q"), h.language(c))
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	if options == nil {
		options = []search.Option{}
	}
	response.RespondOK(c, gin.H{"options": options, "total": total})
}

// Similar handles POST /api/similar: an uploaded image is resolved to a URI
// set, then the regular search pipeline runs restricted to it.
func (h *SearchHandler) Similar(c *gin.Context) {
	req := h.parseRequest(c)
	if req.RouteType == "" {
		response.RespondError(c, http.StatusBadRequest, "missing_type", errors.New("type parameter is required"))
		return
	}
	if h.similarity == nil {
		response.RespondError(c, http.StatusServiceUnavailable, "similarity_unavailable", errors.New("similarity service not configured"))
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "missing_file", errors.New("file upload is required"))
		return
	}
	defer file.Close()

	res, err := h.similarity.SimilarByUpload(c.Request.Context(), header.Filename, file)
	if err != nil {
		h.log.Warn("similarity upload failed", "error", err)
	} else {
		req.SimilarURIs = res.URIs()
	}

	result, err := h.service.Search(c.Request.Context(), req, sessionToken(c))
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	response.RespondOK(c, result)
}

func (h *SearchHandler) respondServiceError(c *gin.Context, err error) {
	if errors.Is(err, search.ErrUnknownRoute) {
		response.Respond(c, apierr.New(http.StatusNotFound, "route_not_found", err))
		return
	}
	response.Respond(c, apierr.New(http.StatusInternalServerError, "search_failed", err))
}

func (h *SearchHandler) parseRequest(c *gin.Context) *search.Request {
	req := &search.Request{
		RouteType:  c.Query("type"),
		Q:          c.Query("q"),
		Graph:      c.Query("graph"),
		Lang:       h.language(c),
		Page:       search.ParsePage(c.Query("page")),
		PageSize:   search.ParsePageSize(c.Query("page_size")),
		SortBy:     c.Query("sort"),
		SortDesc:   strings.EqualFold(c.Query("order"), "desc"),
		Filters:    map[string][]string{},
		Conditions: map[string]search.Condition{},
	}
	for param, values := range c.Request.URL.Query() {
		if id := strings.TrimPrefix(param, filterParamPrefix); id != param && id != "" {
			req.Filters[id] = append(req.Filters[id], values...)
			continue
		}
		if id := strings.TrimPrefix(param, conditionParamPrefix); id != param && id != "" && len(values) > 0 {
			req.Conditions[id] = search.Condition(strings.ToLower(values[0]))
		}
	}
	return req
}

func (h *SearchHandler) language(c *gin.Context) string {
	if lang := strings.TrimSpace(c.Query("lang")); lang != "" {
		return lang
	}
	return h.defaultLang
}

func sessionToken(c *gin.Context) string {
	auth := c.GetHeader("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	if cookie, err := c.Cookie("session"); err == nil {
		return cookie
	}
	return ""
}
