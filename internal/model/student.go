package model

import "time"

// StudentStatus is the enrolment state of a student.
type StudentStatus int

const (
	StudentStatusActive    StudentStatus = 1
	StudentStatusGraduated StudentStatus = 2
	StudentStatusSuspended StudentStatus = 3
)

// Gender of a student.
type Gender int

const (
	GenderUnknown Gender = 0
	GenderMale    Gender = 1
	GenderFemale  Gender = 2
)

// Student is owned by student-record management; the allocation engine only
// reads it.
type Student struct {
	ID        int64         `gorm:"primaryKey" json:"id"`
	StudentNo string        `gorm:"uniqueIndex;size:32;not null" json:"studentNo"`
	RealName  string        `gorm:"size:64;not null" json:"realName"`
	Gender    Gender        `gorm:"not null;default:0" json:"gender"`
	Status    StudentStatus `gorm:"not null;default:1" json:"status"`
	College   string        `gorm:"size:128" json:"college"`
	Major     string        `gorm:"size:128" json:"major"`
	CreatedAt time.Time     `gorm:"not null" json:"createdAt"`
	UpdatedAt time.Time     `gorm:"not null" json:"updatedAt"`
}
