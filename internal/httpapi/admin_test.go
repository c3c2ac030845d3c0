package httpapi_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ProjectRakawara/rescue_svc/internal/httpapi"
	"github.com/ProjectRakawara/rescue_svc/internal/model"
	"github.com/ProjectRakawara/rescue_svc/internal/storage"
	"github.com/ProjectRakawara/rescue_svc/internal/testutil"
)

const testAdminAPIToken = "test-admin-token"

func newAdminTestServer(testingT *testing.T, adminAPIToken string) (*gin.Engine, storage.PostRepository) {
	testingT.Helper()

	gin.SetMode(gin.TestMode)
	sqliteDatabase := testutil.NewSQLiteTestDatabase(testingT)
	database, openErr := storage.OpenDatabase(sqliteDatabase.Configuration())
	require.NoError(testingT, openErr)
	database = testutil.ConfigureDatabaseLogger(testingT, database)
	require.NoError(testingT, storage.AutoMigrate(database))

	repository := storage.NewPostRepository(database, nil)
	handlers := httpapi.NewAdminHandlers(repository, zap.NewNop())

	router := gin.New()
	adminGroup := router.Group("/admin")
	adminGroup.Use(httpapi.AdminAuthMiddleware(adminAPIToken))
	adminGroup.GET("/posts/unverified", handlers.ListUnverified)
	adminGroup.POST("/posts/:id/verify", handlers.VerifyPost)
	adminGroup.DELETE("/posts/:id", handlers.DeletePost)
	return router, repository
}

func newAdminRequest(method string, target string, adminAPIToken string) *http.Request {
	request := httptest.NewRequest(method, target, nil)
	if adminAPIToken != "" {
		request.Header.Set(httpapi.AdminTokenHeaderName, adminAPIToken)
	}
	return request
}

func TestAdminRoutesRejectMissingToken(testingT *testing.T) {
	router, _ := newAdminTestServer(testingT, testAdminAPIToken)

	recorder := performRequest(router, newAdminRequest(http.MethodGet, "/admin/posts/unverified", ""))
	require.Equal(testingT, http.StatusUnauthorized, recorder.Code)

	var errorResponse struct {
		Message string `json:"message"`
	}
	decodeJSONBody(testingT, recorder, &errorResponse)
	require.Equal(testingT, "Unauthorized", errorResponse.Message)
}

func TestAdminRoutesRejectWrongToken(testingT *testing.T) {
	router, repository := newAdminTestServer(testingT, testAdminAPIToken)
	post := seedPost(testingT, repository, nil)

	recorder := performRequest(router, newAdminRequest(http.MethodPost, "/admin/posts/"+post.ID+"/verify", "wrong-token"))
	require.Equal(testingT, http.StatusUnauthorized, recorder.Code)

	unverifiedPosts, listErr := repository.ListUnverifiedPosts()
	require.NoError(testingT, listErr)
	require.Len(testingT, unverifiedPosts, 1)
}

func TestAdminRoutesFailClosedWithoutConfiguredToken(testingT *testing.T) {
	router, _ := newAdminTestServer(testingT, "")

	recorder := performRequest(router, newAdminRequest(http.MethodGet, "/admin/posts/unverified", testAdminAPIToken))
	require.Equal(testingT, http.StatusInternalServerError, recorder.Code)

	var errorResponse struct {
		Message string `json:"message"`
		Details struct {
			Missing string `json:"missing"`
		} `json:"details"`
	}
	decodeJSONBody(testingT, recorder, &errorResponse)
	require.Equal(testingT, "Admin token not configured", errorResponse.Message)
	require.Equal(testingT, "ADMIN_API_TOKEN", errorResponse.Details.Missing)
}

func TestListUnverifiedReturnsOnlyPendingPosts(testingT *testing.T) {
	router, repository := newAdminTestServer(testingT, testAdminAPIToken)

	pendingPost := seedPost(testingT, repository, nil)
	verifiedPost := seedPost(testingT, repository, nil)
	_, verifyErr := repository.VerifyPost(verifiedPost.ID)
	require.NoError(testingT, verifyErr)

	recorder := performRequest(router, newAdminRequest(http.MethodGet, "/admin/posts/unverified", testAdminAPIToken))
	require.Equal(testingT, http.StatusOK, recorder.Code)

	var listResponse struct {
		Posts []model.RescuePost `json:"posts"`
	}
	decodeJSONBody(testingT, recorder, &listResponse)
	require.Len(testingT, listResponse.Posts, 1)
	require.Equal(testingT, pendingPost.ID, listResponse.Posts[0].ID)
}

func TestVerifyPostMarksPostVerified(testingT *testing.T) {
	router, repository := newAdminTestServer(testingT, testAdminAPIToken)
	post := seedPost(testingT, repository, nil)

	recorder := performRequest(router, newAdminRequest(http.MethodPost, "/admin/posts/"+post.ID+"/verify", testAdminAPIToken))
	require.Equal(testingT, http.StatusOK, recorder.Code)

	var verifyResponse struct {
		Post model.RescuePost `json:"post"`
	}
	decodeJSONBody(testingT, recorder, &verifyResponse)
	require.Equal(testingT, post.ID, verifyResponse.Post.ID)
	require.True(testingT, verifyResponse.Post.IsVerified)

	unverifiedPosts, listErr := repository.ListUnverifiedPosts()
	require.NoError(testingT, listErr)
	require.Empty(testingT, unverifiedPosts)
}

func TestVerifyPostUnknownIDReturnsNotFound(testingT *testing.T) {
	router, _ := newAdminTestServer(testingT, testAdminAPIToken)

	recorder := performRequest(router, newAdminRequest(http.MethodPost, "/admin/posts/no-such-post/verify", testAdminAPIToken))
	require.Equal(testingT, http.StatusNotFound, recorder.Code)
}

func TestDeletePostRemovesPostAndReportsID(testingT *testing.T) {
	router, repository := newAdminTestServer(testingT, testAdminAPIToken)
	post := seedPost(testingT, repository, nil)

	recorder := performRequest(router, newAdminRequest(http.MethodDelete, "/admin/posts/"+post.ID, testAdminAPIToken))
	require.Equal(testingT, http.StatusOK, recorder.Code)

	var deleteResponse struct {
		Message string `json:"message"`
		PostID  string `json:"post_id"`
	}
	decodeJSONBody(testingT, recorder, &deleteResponse)
	require.Equal(testingT, "Post deleted", deleteResponse.Message)
	require.Equal(testingT, post.ID, deleteResponse.PostID)

	remainingPosts, listErr := repository.ListPostsWithImages()
	require.NoError(testingT, listErr)
	require.Empty(testingT, remainingPosts)
}

func TestDeletePostUnknownIDReturnsNotFound(testingT *testing.T) {
	router, _ := newAdminTestServer(testingT, testAdminAPIToken)

	recorder := performRequest(router, newAdminRequest(http.MethodDelete, "/admin/posts/no-such-post", testAdminAPIToken))
	require.Equal(testingT, http.StatusNotFound, recorder.Code)
}
