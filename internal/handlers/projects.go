package handlers

import (
	"encoding/json"
	"net/http"
	"regexp"

	"github.com/hostdeck/hostdeck/internal/database"
)

var projectNameRe = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{0,62}$`)

func ListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := database.ListProjects()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Database error")
		return
	}
	writeJSON(w, http.StatusOK, projects)
}

func GetProject(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	project, err := database.GetProject(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "Project not found")
		return
	}
	writeJSON(w, http.StatusOK, project)
}

func CreateProject(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name         string `json:"name"`
		DisplayName  string `json:"display_name"`
		ContainerRef string `json:"container_ref"`
		Image        string `json:"image"`
		Domain       string `json:"domain"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if !projectNameRe.MatchString(body.Name) {
		writeError(w, http.StatusBadRequest, "Name must be lowercase alphanumeric with hyphens")
		return
	}
	if body.ContainerRef == "" {
		writeError(w, http.StatusBadRequest, "Container reference is required")
		return
	}
	if body.DisplayName == "" {
		body.DisplayName = body.Name
	}

	if _, err := database.GetProjectByName(body.Name); err == nil {
		writeError(w, http.StatusConflict, "Project name already in use")
		return
	}

	project := &database.Project{
		Name:         body.Name,
		DisplayName:  body.DisplayName,
		ContainerRef: body.ContainerRef,
		Image:        body.Image,
		Domain:       body.Domain,
		Status:       "created",
	}
	if err := database.CreateProject(project); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create project")
		return
	}
	writeJSON(w, http.StatusCreated, project)
}

func UpdateProject(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	project, err := database.GetProject(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "Project not found")
		return
	}

	var body struct {
		DisplayName  *string `json:"display_name"`
		ContainerRef *string `json:"container_ref"`
		Image        *string `json:"image"`
		Domain       *string `json:"domain"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if body.DisplayName != nil {
		project.DisplayName = *body.DisplayName
	}
	if body.ContainerRef != nil {
		if *body.ContainerRef == "" {
			writeError(w, http.StatusBadRequest, "Container reference cannot be empty")
			return
		}
		project.ContainerRef = *body.ContainerRef
	}
	if body.Image != nil {
		project.Image = *body.Image
	}
	if body.Domain != nil {
		project.Domain = *body.Domain
	}

	if err := database.SaveProject(project); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update project")
		return
	}
	writeJSON(w, http.StatusOK, project)
}

func DeleteProject(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	if _, err := database.GetProject(id); err != nil {
		writeError(w, http.StatusNotFound, "Project not found")
		return
	}
	if err := database.DeleteProject(id); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete project")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
