package server

import (
	"encoding/json"
	"net/http"

	openapi "github.com/swaggest/openapi-go"
	"github.com/swaggest/openapi-go/openapi3"
)

// ErrorResponse is returned for all error responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse maps dependency names to their check status.
type HealthResponse map[string]struct {
	Status string `json:"status"`
}

func newOpenAPISpec() *openapi3.Spec {
	r := openapi3.NewReflector()
	r.Spec.Info.Title = "CleanQuest API"
	r.Spec.Info.Version = "0.1.0"
	r.Spec.Info.WithDescription("Backend API for geofenced cleanup quest verification.")

	// GET /healthz
	getHealthz, _ := r.NewOperationContext(http.MethodGet, "/healthz")
	getHealthz.SetSummary("Health check")
	getHealthz.SetDescription("Returns the health status of backend dependencies.")
	getHealthz.AddRespStructure(HealthResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getHealthz.AddRespStructure(HealthResponse{}, openapi.WithHTTPStatus(http.StatusServiceUnavailable))
	_ = r.AddOperation(getHealthz)

	// POST /api/register
	postRegister, _ := r.NewOperationContext(http.MethodPost, "/api/register")
	postRegister.SetSummary("Register traveler")
	postRegister.SetDescription("Registers a traveler and returns a session token.")
	postRegister.AddReqStructure(RegisterRequest{})
	postRegister.AddRespStructure(RegisterResponse{}, openapi.WithHTTPStatus(http.StatusCreated))
	postRegister.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	_ = r.AddOperation(postRegister)

	// GET /api/me
	getMe, _ := r.NewOperationContext(http.MethodGet, "/api/me")
	getMe.SetSummary("Current traveler")
	getMe.SetDescription("Returns the traveler's profile with points and completions. Requires Bearer token.")
	getMe.AddRespStructure(TravelerProfile{}, openapi.WithHTTPStatus(http.StatusOK))
	getMe.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(getMe)

	// GET /api/quests
	listQuests, _ := r.NewOperationContext(http.MethodGet, "/api/quests")
	listQuests.SetSummary("List active quests")
	listQuests.SetDescription("Returns active quests. Pass latitude and longitude to sort by distance.")
	listQuests.AddRespStructure(QuestListResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	listQuests.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	_ = r.AddOperation(listQuests)

	// GET /api/quests/{id}
	getQuest, _ := r.NewOperationContext(http.MethodGet, "/api/quests/{id}")
	getQuest.SetSummary("Get quest")
	getQuest.SetDescription("Returns a single quest by id.")
	getQuest.AddRespStructure(Quest{}, openapi.WithHTTPStatus(http.StatusOK))
	getQuest.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(getQuest)

	// POST /api/quests/{id}/start
	postStart, _ := r.NewOperationContext(http.MethodPost, "/api/quests/{id}/start")
	postStart.SetSummary("Start quest")
	postStart.SetDescription("Opens a submission with a before photo and GPS position. Multipart form with latitude, longitude, and before_image. Requires Bearer token.")
	postStart.AddRespStructure(StartResult{}, openapi.WithHTTPStatus(http.StatusCreated))
	postStart.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	postStart.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	postStart.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	postStart.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	postStart.AddRespStructure(OutOfRangeResponse{}, openapi.WithHTTPStatus(http.StatusUnprocessableEntity))
	_ = r.AddOperation(postStart)

	// POST /api/quests/{id}/complete
	postComplete, _ := r.NewOperationContext(http.MethodPost, "/api/quests/{id}/complete")
	postComplete.SetSummary("Complete quest")
	postComplete.SetDescription("Closes the open submission with an after photo and GPS position, scores both photos, and settles the reward. Multipart form with latitude, longitude, and after_image. Requires Bearer token.")
	postComplete.AddRespStructure(VerificationResult{}, openapi.WithHTTPStatus(http.StatusOK))
	postComplete.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	postComplete.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	postComplete.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	postComplete.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	postComplete.AddRespStructure(OutOfRangeResponse{}, openapi.WithHTTPStatus(http.StatusUnprocessableEntity))
	postComplete.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusServiceUnavailable))
	_ = r.AddOperation(postComplete)

	// GET /api/submissions
	listMine, _ := r.NewOperationContext(http.MethodGet, "/api/submissions")
	listMine.SetSummary("My submissions")
	listMine.SetDescription("Returns the traveler's submission history, newest first. Requires Bearer token.")
	listMine.AddRespStructure(SubmissionListResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	listMine.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(listMine)

	// GET /api/leaderboard
	getBoard, _ := r.NewOperationContext(http.MethodGet, "/api/leaderboard")
	getBoard.SetSummary("Leaderboard")
	getBoard.SetDescription("Returns travelers ranked by points.")
	getBoard.AddRespStructure(LeaderboardResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getBoard.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	_ = r.AddOperation(getBoard)

	// POST /api/guide/login
	postLogin, _ := r.NewOperationContext(http.MethodPost, "/api/guide/login")
	postLogin.SetSummary("Guide login")
	postLogin.SetDescription("Authenticate with email and password. Sets guide_session cookie.")
	postLogin.AddReqStructure(GuideLoginRequest{})
	postLogin.AddRespStructure(GuideMeResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	postLogin.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(postLogin)

	// POST /api/guide/logout
	postLogout, _ := r.NewOperationContext(http.MethodPost, "/api/guide/logout")
	postLogout.SetSummary("Guide logout")
	postLogout.SetDescription("Clears guide session and cookie.")
	postLogout.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusNoContent))
	_ = r.AddOperation(postLogout)

	// GET /api/guide/me
	getGuideMe, _ := r.NewOperationContext(http.MethodGet, "/api/guide/me")
	getGuideMe.SetSummary("Current guide")
	getGuideMe.SetDescription("Returns the currently authenticated guide. Requires guide_session cookie.")
	getGuideMe.AddRespStructure(GuideMeResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getGuideMe.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(getGuideMe)

	// GET /api/guide/quests
	listGuideQuests, _ := r.NewOperationContext(http.MethodGet, "/api/guide/quests")
	listGuideQuests.SetSummary("List my quests")
	listGuideQuests.SetDescription("Returns all quests owned by the guide, including inactive ones. Requires guide_session cookie.")
	listGuideQuests.AddRespStructure([]Quest{}, openapi.WithHTTPStatus(http.StatusOK))
	listGuideQuests.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(listGuideQuests)

	// POST /api/guide/quests
	createQuest, _ := r.NewOperationContext(http.MethodPost, "/api/guide/quests")
	createQuest.SetSummary("Create quest")
	createQuest.SetDescription("Creates a cleanup quest at a location. Requires guide_session cookie.")
	createQuest.AddReqStructure(QuestRequest{})
	createQuest.AddRespStructure(Quest{}, openapi.WithHTTPStatus(http.StatusCreated))
	createQuest.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	createQuest.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(createQuest)

	// PUT /api/guide/quests/{id}
	updateQuest, _ := r.NewOperationContext(http.MethodPut, "/api/guide/quests/{id}")
	updateQuest.SetSummary("Update quest")
	updateQuest.SetDescription("Updates a quest's details. Requires guide_session cookie.")
	updateQuest.AddReqStructure(QuestRequest{})
	updateQuest.AddRespStructure(Quest{}, openapi.WithHTTPStatus(http.StatusOK))
	updateQuest.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	updateQuest.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	updateQuest.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(updateQuest)

	// POST /api/guide/quests/{id}/active
	setActive, _ := r.NewOperationContext(http.MethodPost, "/api/guide/quests/{id}/active")
	setActive.SetSummary("Activate or deactivate quest")
	setActive.SetDescription("Toggles whether a quest accepts new submissions. Requires guide_session cookie.")
	setActive.AddReqStructure(QuestActiveRequest{})
	setActive.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusNoContent))
	setActive.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	setActive.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(setActive)

	// DELETE /api/guide/quests/{id}
	deleteQuest, _ := r.NewOperationContext(http.MethodDelete, "/api/guide/quests/{id}")
	deleteQuest.SetSummary("Delete quest")
	deleteQuest.SetDescription("Deletes a quest. Blocked if submissions reference it. Requires guide_session cookie.")
	deleteQuest.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusNoContent))
	deleteQuest.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	deleteQuest.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	deleteQuest.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(deleteQuest)

	// GET /api/guide/submissions
	listGuideSubs, _ := r.NewOperationContext(http.MethodGet, "/api/guide/submissions")
	listGuideSubs.SetSummary("Review submissions")
	listGuideSubs.SetDescription("Returns submissions against the guide's quests, optionally filtered by state. Requires guide_session cookie.")
	listGuideSubs.AddRespStructure(SubmissionListResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	listGuideSubs.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	listGuideSubs.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(listGuideSubs)

	// GET /api/guide/media/{ref}
	getMedia, _ := r.NewOperationContext(http.MethodGet, "/api/guide/media/{ref}")
	getMedia.SetSummary("Fetch evidence photo")
	getMedia.SetDescription("Returns a stored before or after photo for review. Requires guide_session cookie.")
	getMedia.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK),
		openapi.WithContentType("image/jpeg"))
	getMedia.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	getMedia.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(getMedia)

	// GET /api/guide/events
	getEvents, _ := r.NewOperationContext(http.MethodGet, "/api/guide/events")
	getEvents.SetSummary("SSE event stream")
	getEvents.SetDescription("Server-Sent Events stream of verification activity on the guide's quests. Requires guide_session cookie.")
	getEvents.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK),
		openapi.WithContentType("text/event-stream"))
	_ = r.AddOperation(getEvents)

	return r.Spec
}

func handleOpenAPI() http.HandlerFunc {
	spec := newOpenAPISpec()
	data, _ := json.MarshalIndent(spec, "", "  ")

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}
