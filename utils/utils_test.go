package utils

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"screedflow/models"
	"screedflow/repository"
)

func TestSessionTokenRoundTrip(t *testing.T) {
	member := models.TeamMember{ID: "2", Name: "Marcus Chen", AccessLevel: models.AccessEditor}
	token, err := GenerateSessionToken("secret", member, time.Hour)
	require.NoError(t, err)

	claims, err := ParseSessionToken("secret", token)
	require.NoError(t, err)
	assert.Equal(t, "2", claims.MemberID)
	assert.Equal(t, "Marcus Chen", claims.Name)
	assert.Equal(t, models.AccessEditor, claims.AccessLevel)

	_, err = ParseSessionToken("other", token)
	assert.Error(t, err)
}

func TestExpiredSessionToken(t *testing.T) {
	token, err := GenerateSessionToken("secret", models.TeamMember{ID: "1"}, -time.Minute)
	require.NoError(t, err)
	_, err = ParseSessionToken("secret", token)
	assert.Error(t, err)
}

func TestOfferedActions(t *testing.T) {
	admin := OfferedActions(models.AccessAdmin)
	assert.Contains(t, admin, ActionManageTeam)
	assert.Contains(t, admin, ActionEditBaselines)

	editor := OfferedActions(models.AccessEditor)
	assert.Contains(t, editor, ActionRecordWork)
	assert.Contains(t, editor, ActionUpdateStock)
	assert.NotContains(t, editor, ActionManageTeam)

	client := OfferedActions(models.AccessClient)
	assert.Contains(t, client, ActionViewReports)
	assert.NotContains(t, client, ActionRecordWork)

	assert.Equal(t, OfferedActions(models.AccessViewer), OfferedActions("Guest"))

	editor[0] = "mutated"
	assert.Equal(t, ActionViewDashboard, OfferedActions(models.AccessEditor)[0])
}

func TestRespondError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		name string
		err  error
		code int
		key  string
	}{
		{"validation", models.ValidationErrors{{Field: "end_date", Message: "must be after start_date"}}, http.StatusBadRequest, "fields"},
		{"not found", fmt.Errorf("task %q: %w", "t9", models.ErrNotFound), http.StatusNotFound, "error"},
		{"not persisted", fmt.Errorf("%w: disk full", repository.ErrNotPersisted), http.StatusInternalServerError, "persisted"},
		{"other", errors.New("boom"), http.StatusInternalServerError, "details"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			RespondError(c, tc.err)

			assert.Equal(t, tc.code, w.Code)
			var body map[string]any
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Contains(t, body, tc.key)
		})
	}
}

func TestQueryContext(t *testing.T) {
	ctx, cancel := GetFastQueryContext(context.TODO())
	defer cancel()
	deadline, ok := ctx.Deadline()
	require.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(FastQueryTimeout), deadline, time.Second)
}
