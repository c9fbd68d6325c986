package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/leadflow/internal/models"
	"github.com/charlesng35/leadflow/internal/services"
	"github.com/charlesng35/leadflow/pkg/response"
)

// ClientHandler manages converted and directly added clients.
type ClientHandler struct {
	clients *services.ClientService
}

func NewClientHandler(clients *services.ClientService) *ClientHandler {
	return &ClientHandler{clients: clients}
}

// GET /api/clients
func (h *ClientHandler) List(c *gin.Context) {
	clients, err := h.clients.ListClients(requestContext(c), services.ClientFilter{
		Search: c.Query("search"),
		Status: models.ClientStatus(strings.TrimSpace(c.Query("status"))),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, clients)
}

// POST /api/clients
func (h *ClientHandler) Create(c *gin.Context) {
	var input services.CreateClientInput
	if !bindJSON(c, &input) {
		return
	}
	client, err := h.clients.CreateClient(requestContext(c), input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, client)
}

// GET /api/clients/:id
func (h *ClientHandler) Get(c *gin.Context) {
	client, err := h.clients.GetClient(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, client)
}

// PATCH /api/clients/:id
func (h *ClientHandler) Update(c *gin.Context) {
	var input services.UpdateClientInput
	if !bindJSON(c, &input) {
		return
	}
	client, err := h.clients.UpdateClient(requestContext(c), c.Param("id"), input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, client)
}

// DELETE /api/clients/:id
func (h *ClientHandler) Delete(c *gin.Context) {
	if err := h.clients.DeleteClient(requestContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}
