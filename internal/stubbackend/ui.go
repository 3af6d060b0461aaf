package stubbackend

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jmerrifield20/neosconnect/pkg/connector"
)

// Feedback types sent after mutations.
const (
	FeedbackUpdateWorkspaceInfo = "Neos.Neos.Ui:UpdateWorkspaceInfo"
	FeedbackSuccess             = "Neos.Neos.Ui:Success"
	FeedbackError               = "Neos.Neos.Ui:Error"
	FeedbackUpdateClipboard     = "Neos.Neos.Ui:UpdateClipboard"
)

// ChangeTypeProperty is the change type that sets a node property.
const ChangeTypeProperty = "Neos.Neos.Ui:Property"

func feedback(typ, description string, payload any) connector.Feedback {
	fb := connector.Feedback{Type: typ, Description: description}
	if payload != nil {
		fb.Payload, _ = json.Marshal(payload)
	}
	return fb
}

func (s *Server) workspaceFeedback(c *gin.Context) connector.Feedback {
	return feedback(FeedbackUpdateWorkspaceInfo, "", s.store.workspaceInfo(userWorkspace(currentUser(c))))
}

func (s *Server) respondFeedback(c *gin.Context, feedbacks ...connector.Feedback) {
	c.JSON(http.StatusOK, connector.FeedbackResponse{Feedbacks: feedbacks})
}

func (s *Server) change(c *gin.Context) {
	var req struct {
		Changes []connector.Change `json:"changes"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		abortJSON(c, http.StatusBadRequest, err.Error())
		return
	}

	ws := userWorkspace(currentUser(c))
	var feedbacks []connector.Feedback
	for _, ch := range req.Changes {
		if ch.Type == ChangeTypeProperty && ch.Payload["propertyName"] == "title" {
			title, _ := ch.Payload["value"].(string)
			if err := s.store.setLabel(ch.Subject, title); err != nil {
				s.logger.Info("change rejected", zap.String("subject", ch.Subject), zap.Error(err))
				feedbacks = append(feedbacks, feedback(FeedbackError, "cannot change "+ch.Subject, nil))
				continue
			}
		}
		s.store.markChanged(ws, ch.Subject)
	}
	s.respondFeedback(c, append(feedbacks, s.workspaceFeedback(c))...)
}

func (s *Server) publish(c *gin.Context) {
	var req struct {
		NodeContextPaths    []string `json:"nodeContextPaths"`
		TargetWorkspaceName string   `json:"targetWorkspaceName"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		abortJSON(c, http.StatusBadRequest, err.Error())
		return
	}
	if req.TargetWorkspaceName == "" {
		abortJSON(c, http.StatusBadRequest, "targetWorkspaceName is required")
		return
	}

	n := s.store.release(userWorkspace(currentUser(c)), req.NodeContextPaths)
	s.respondFeedback(c,
		feedback(FeedbackSuccess, pluralNodes(n)+" published to "+req.TargetWorkspaceName, nil),
		s.workspaceFeedback(c),
	)
}

func (s *Server) discard(c *gin.Context) {
	var req struct {
		NodeContextPaths []string `json:"nodeContextPaths"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		abortJSON(c, http.StatusBadRequest, err.Error())
		return
	}

	n := s.store.release(userWorkspace(currentUser(c)), req.NodeContextPaths)
	s.respondFeedback(c,
		feedback(FeedbackSuccess, pluralNodes(n)+" discarded", nil),
		s.workspaceFeedback(c),
	)
}

func (s *Server) changeBaseWorkspace(c *gin.Context) {
	var req struct {
		TargetWorkspaceName string `json:"targetWorkspaceName"`
		DocumentNode        string `json:"documentNode"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.TargetWorkspaceName == "" {
		abortJSON(c, http.StatusBadRequest, "targetWorkspaceName is required")
		return
	}

	s.store.rebase(userWorkspace(currentUser(c)), req.TargetWorkspaceName)
	s.respondFeedback(c, s.workspaceFeedback(c))
}

func (s *Server) clipboard(mode string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Node string `json:"node"`
		}
		if err := c.ShouldBindJSON(&req); err != nil || req.Node == "" {
			abortJSON(c, http.StatusBadRequest, "node is required")
			return
		}
		s.store.setClipboard(userWorkspace(currentUser(c)), req.Node, mode)
		s.respondFeedback(c, feedback(FeedbackUpdateClipboard, "", gin.H{"clipboardNodeContextPath": req.Node, "clipboardMode": mode}))
	}
}

func (s *Server) clearClipboard(c *gin.Context) {
	s.store.setClipboard(userWorkspace(currentUser(c)), "", "")
	s.respondFeedback(c, feedback(FeedbackUpdateClipboard, "", gin.H{"clipboardNodeContextPath": nil, "clipboardMode": nil}))
}

func (s *Server) getWorkspaceInfo(c *gin.Context) {
	c.JSON(http.StatusOK, s.store.workspaceInfo(userWorkspace(currentUser(c))))
}

func (s *Server) policyInfo(c *gin.Context) {
	var req struct {
		Nodes []string `json:"nodes"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusOK, connector.PolicyInfo{Success: false})
		return
	}

	policies := make(map[string]connector.NodePolicyInfo, len(req.Nodes))
	for _, p := range req.Nodes {
		policies[p] = connector.NodePolicyInfo{Policy: connector.NodePolicy{
			CanRemove:            true,
			CanEdit:              true,
			DisallowedNodeTypes:  []string{},
			DisallowedProperties: []string{},
		}}
	}
	c.JSON(http.StatusOK, connector.PolicyInfo{Success: true, NodePolicies: policies})
}

func pluralNodes(n int) string {
	if n == 1 {
		return "1 node"
	}
	return strconv.Itoa(n) + " nodes"
}
