// Package dbtest opens isolated in-memory sqlite databases for tests.
package dbtest

import (
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"dorm-allocation-backend/internal/db"
	"dorm-allocation-backend/internal/model"
	"dorm-allocation-backend/internal/parse"
)

var seq atomic.Int64

// Open returns a migrated in-memory database private to the test. The pool is
// limited to one connection so transactions queue instead of failing with
// SQLITE_LOCKED.
func Open(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, seq.Add(1))

	gormDB, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err, "failed to open in-memory database")

	sqlDB, err := gormDB.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.Migrate(gormDB))
	return gormDB
}

// Building inserts a building with the given code.
func Building(t *testing.T, gormDB *gorm.DB, code string, gender model.GenderType) model.Building {
	t.Helper()
	b := model.Building{Code: code, Name: code + "栋", GenderType: gender}
	require.NoError(t, gormDB.Create(&b).Error)
	return b
}

// Room inserts an in-service room with the given capacity.
func Room(t *testing.T, gormDB *gorm.DB, buildingID int64, number string, beds int, gender model.GenderType) model.Room {
	t.Helper()
	floor, err := parse.FloorOf(number)
	require.NoError(t, err)
	r := model.Room{
		BuildingID: buildingID,
		Floor:      floor,
		RoomNumber: number,
		BedCount:   beds,
		GenderType: gender,
		Status:     model.RoomStatusNormal,
	}
	require.NoError(t, gormDB.Create(&r).Error)
	return r
}

// Student inserts an active student.
func Student(t *testing.T, gormDB *gorm.DB, no string, gender model.Gender) model.Student {
	t.Helper()
	s := model.Student{StudentNo: no, RealName: "学生" + no, Gender: gender, Status: model.StudentStatusActive}
	require.NoError(t, gormDB.Create(&s).Error)
	return s
}

// Date returns midnight UTC of the given day.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
