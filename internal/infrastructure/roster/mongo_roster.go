// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package roster reads course rosters from MongoDB.
package roster

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/linuxfoundation/lfx-v2-attendance-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-attendance-service/internal/domain/models"
)

// Collection names of the roster database.
const (
	CollectionUsers        = "users"
	CollectionEnrolments   = "enrolments"
	CollectionGroupMembers = "group_members"
)

// EnrolmentStatusActive marks an enrolment that counts towards the roster.
const EnrolmentStatusActive = "active"

// DefaultTeacherRoles are the enrolment roles treated as teaching staff.
var DefaultTeacherRoles = []string{"editingteacher", "teacher", "manager"}

// MongoRosterProvider implements domain.RosterProvider on three collections:
//
//	users          {_id, firstname, lastname, email, deleted}
//	enrolments     {courseid, userid, roles, status}
//	group_members  {courseid, groupid, userid}
type MongoRosterProvider struct {
	users        *mongo.Collection
	enrolments   *mongo.Collection
	groupMembers *mongo.Collection
	teacherRoles []string
}

// Ensure MongoRosterProvider implements RosterProvider
var _ domain.RosterProvider = (*MongoRosterProvider)(nil)

// NewMongoRosterProvider creates a roster provider on db. An empty teacherRoles
// uses DefaultTeacherRoles.
func NewMongoRosterProvider(db *mongo.Database, teacherRoles []string) *MongoRosterProvider {
	if len(teacherRoles) == 0 {
		teacherRoles = DefaultTeacherRoles
	}
	return &MongoRosterProvider{
		users:        db.Collection(CollectionUsers),
		enrolments:   db.Collection(CollectionEnrolments),
		groupMembers: db.Collection(CollectionGroupMembers),
		teacherRoles: teacherRoles,
	}
}

// Connect opens a MongoDB client and verifies it with a ping.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("MongoDB ping failed: %w", err)
	}
	slog.InfoContext(ctx, "connected to MongoDB")
	return client, nil
}

// EnrolledUsers returns the ids of users actively enrolled in the course.
func (p *MongoRosterProvider) EnrolledUsers(ctx context.Context, courseID string) ([]string, error) {
	values, err := p.enrolments.Distinct(ctx, "userid", bson.M{"courseid": courseID, "status": EnrolmentStatusActive})
	if err != nil {
		return nil, domain.NewUnavailableError(fmt.Sprintf("failed to list enrolled users of course %s", courseID), err)
	}
	return toStrings(values), nil
}

// GroupMembers returns the ids of the members of a group.
func (p *MongoRosterProvider) GroupMembers(ctx context.Context, groupID string) ([]string, error) {
	values, err := p.groupMembers.Distinct(ctx, "userid", bson.M{"groupid": groupID})
	if err != nil {
		return nil, domain.NewUnavailableError(fmt.Sprintf("failed to list members of group %s", groupID), err)
	}
	return toStrings(values), nil
}

// IsTeacherRole reports whether the user holds a teaching role in the course.
func (p *MongoRosterProvider) IsTeacherRole(ctx context.Context, courseID, userID string) (bool, error) {
	filter := bson.M{
		"courseid": courseID,
		"userid":   userID,
		"roles":    bson.M{"$in": p.teacherRoles},
	}
	err := p.enrolments.FindOne(ctx, filter).Err()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil
	}
	if err != nil {
		return false, domain.NewUnavailableError(fmt.Sprintf("failed to read roles of user %s", userID), err)
	}
	return true, nil
}

// CourseUsers returns the identity fields of every non-deleted user enrolled in the course.
func (p *MongoRosterProvider) CourseUsers(ctx context.Context, courseID string) ([]models.RosterUser, error) {
	ids, err := p.EnrolledUsers(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	cursor, err := p.users.Find(ctx, bson.M{
		"_id":     bson.M{"$in": ids},
		"deleted": bson.M{"$ne": true},
	})
	if err != nil {
		return nil, domain.NewUnavailableError(fmt.Sprintf("failed to read users of course %s", courseID), err)
	}
	var users []models.RosterUser
	if err := cursor.All(ctx, &users); err != nil {
		return nil, domain.NewUnavailableError(fmt.Sprintf("failed to decode users of course %s", courseID), err)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

// UserGroups returns the ids of the course groups the user belongs to.
func (p *MongoRosterProvider) UserGroups(ctx context.Context, courseID, userID string) ([]string, error) {
	values, err := p.groupMembers.Distinct(ctx, "groupid", bson.M{"courseid": courseID, "userid": userID})
	if err != nil {
		return nil, domain.NewUnavailableError(fmt.Sprintf("failed to list groups of user %s", userID), err)
	}
	return toStrings(values), nil
}

func toStrings(values []interface{}) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		switch s := v.(type) {
		case string:
			out = append(out, s)
		case nil:
		default:
			out = append(out, fmt.Sprint(s))
		}
	}
	sort.Strings(out)
	return out
}
