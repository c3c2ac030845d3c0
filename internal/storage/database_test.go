package storage_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ProjectRakawara/rescue_svc/internal/model"
	"github.com/ProjectRakawara/rescue_svc/internal/storage"
	"github.com/ProjectRakawara/rescue_svc/internal/testutil"
)

const testUnsupportedDriverName = "unsupported-driver"

func TestOpenDatabaseWithSQLiteConfiguration(testingT *testing.T) {
	sqliteDatabase := testutil.NewSQLiteTestDatabase(testingT)

	database, openErr := storage.OpenDatabase(sqliteDatabase.Configuration())
	require.NoError(testingT, openErr)
	database = testutil.ConfigureDatabaseLogger(testingT, database)
	require.NotNil(testingT, database)

	require.NoError(testingT, storage.AutoMigrate(database))

	post := model.RescuePost{
		ID:            storage.NewID(),
		FullName:      "Migration Probe",
		PhoneNumber:   "8801712345678",
		Location:      "Embankment road",
		EmergencyType: "flood",
		PriorityLevel: model.PriorityLevelHigh,
		LocationURL:   "https://maps.example/pin",
	}
	require.NoError(testingT, database.Create(&post).Error)

	image := model.RescueImage{
		ID:       storage.NewID(),
		PostID:   post.ID,
		ImageURL: "https://cdn.example/photo.jpg",
	}
	require.NoError(testingT, database.Create(&image).Error)

	var fetchedPost model.RescuePost
	require.NoError(testingT, database.Preload("Images").First(&fetchedPost, "id = ?", post.ID).Error)
	require.Equal(testingT, post.FullName, fetchedPost.FullName)
	require.False(testingT, fetchedPost.IsVerified)
	require.Len(testingT, fetchedPost.Images, 1)
}

func TestOpenDatabaseRejectsMissingDriverName(testingT *testing.T) {
	_, openErr := storage.OpenDatabase(storage.Config{DataSourceName: "file:test?mode=memory"})
	require.ErrorIs(testingT, openErr, storage.ErrMissingDatabaseDriverName)
}

func TestOpenDatabaseRejectsUnsupportedDriver(testingT *testing.T) {
	_, openErr := storage.OpenDatabase(storage.Config{
		DriverName:     testUnsupportedDriverName,
		DataSourceName: "file:test?mode=memory",
	})
	require.ErrorIs(testingT, openErr, storage.ErrUnsupportedDatabaseDriver)
}

func TestOpenDatabaseRejectsMissingDataSourceName(testingT *testing.T) {
	_, openErr := storage.OpenDatabase(storage.Config{DriverName: storage.DriverNameSQLite})
	require.ErrorIs(testingT, openErr, storage.ErrMissingDataSourceName)
}

func TestNewIDGeneratesUniqueIdentifiers(testingT *testing.T) {
	firstID := storage.NewID()
	secondID := storage.NewID()
	require.NotEmpty(testingT, firstID)
	require.NotEqual(testingT, firstID, secondID)
}
