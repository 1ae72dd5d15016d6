package db

import (
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// demoUsernames are the seeded profiles, in creation order.
var demoUsernames = []string{"alice", "bob", "carol", "dave", "erin", "frank", "grace", "heidi"}

// DemoUserID is the deterministic profile id of a seeded username, so a
// local identity provider can mint tokens for it.
func DemoUserID(username string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("careersim-demo:"+username)).String()
}

// SeedTestData resets the database and populates it with demo profiles,
// a friend graph, notifications and job applications.
//
// Behavior:
//  1. Clears every table.
//  2. Creates 8 profiles with a stats row each.
//  3. alice is friends with bob and carol, has a pending request from dave
//     and declined one from erin; the rest of the graph is a pending chain.
//  4. Each user gets applications in every stage: open at screening, open
//     at technical, rejected at technical and hired. Stats counters match
//     the applications seeded.
func SeedTestData(db *gorm.DB) error {
	r := rand.New(rand.NewSource(time.Now().UnixNano()))

	// --- Fresh start ---
	for _, table := range []string{"notifications", "friend_requests", "job_applications", "user_profiles", "profiles"} {
		if err := db.Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	log.Println("Cleared existing data")

	// --- Profiles ---
	now := time.Now().UTC()
	for i, name := range demoUsernames {
		p := Profile{ID: DemoUserID(name), Username: name, IsActive: true, CreatedAt: now.Add(-time.Duration(len(demoUsernames)-i) * 24 * time.Hour)}
		if err := db.Create(&p).Error; err != nil {
			return fmt.Errorf("failed to seed profile %s: %w", name, err)
		}
	}
	log.Printf("Seeded %d profiles.", len(demoUsernames))

	// --- Friend graph ---
	edges := []struct {
		from, to string
		status   FriendRequestStatus
	}{
		{"bob", "alice", FriendRequestAccepted},
		{"alice", "carol", FriendRequestAccepted},
		{"dave", "alice", FriendRequestPending},
		{"erin", "alice", FriendRequestDeclined},
		{"frank", "grace", FriendRequestPending},
		{"grace", "heidi", FriendRequestPending},
	}
	for i, e := range edges {
		from, to := DemoUserID(e.from), DemoUserID(e.to)
		req := FriendRequest{
			RequesterID: from,
			RecipientID: to,
			Status:      e.status,
			CreatedAt:   now.Add(-time.Duration(len(edges)-i) * time.Hour),
		}
		if e.status != FriendRequestDeclined {
			key := PairKey(from, to)
			req.ActivePair = &key
		}
		if e.status != FriendRequestPending {
			at := req.CreatedAt.Add(10 * time.Minute)
			req.RespondedAt = &at
		}
		if err := db.Create(&req).Error; err != nil {
			return fmt.Errorf("failed to seed friend request %s→%s: %w", e.from, e.to, err)
		}

		requester := e.from
		n := Notification{
			UserID:    to,
			Type:      NotificationFriendRequest,
			Message:   requester + " sent you a friend request",
			Data:      &from,
			IsRead:    e.status != FriendRequestPending,
			CreatedAt: req.CreatedAt,
		}
		if err := db.Create(&n).Error; err != nil {
			return fmt.Errorf("failed to seed notification: %w", err)
		}
		if e.status == FriendRequestAccepted {
			accepted := Notification{
				UserID:    from,
				Type:      NotificationFriendAccept,
				Message:   e.to + " accepted your friend request",
				Data:      &to,
				CreatedAt: *req.RespondedAt,
			}
			if err := db.Create(&accepted).Error; err != nil {
				return fmt.Errorf("failed to seed notification: %w", err)
			}
		}
	}
	log.Printf("Seeded %d friend requests.", len(edges))

	// --- Job applications ---
	companies := []string{"Acme", "Globex", "Initech", "Umbrella", "Hooli"}
	total := 0
	for _, name := range demoUsernames {
		userID := DemoUserID(name)
		jobs := demoApplications(r, userID, companies, now)
		if err := db.Create(&jobs).Error; err != nil {
			return fmt.Errorf("failed to seed applications for %s: %w", name, err)
		}

		var hired int64
		for _, j := range jobs {
			if j.FinalHired != nil && *j.FinalHired {
				hired++
			}
		}
		stats := UserStats{
			UserID:                userID,
			PreferredDifficulty:   Difficulties[r.Intn(len(Difficulties))],
			TotalSimulations:      int64(len(jobs)),
			SuccessfulSimulations: hired,
		}
		if err := db.Create(&stats).Error; err != nil {
			return fmt.Errorf("failed to seed stats for %s: %w", name, err)
		}
		total += len(jobs)
	}
	log.Printf("Seeded %d job applications.", total)

	return nil
}

func demoApplications(r *rand.Rand, userID string, companies []string, now time.Time) []JobApplication {
	yes, no := true, false
	score := func() *float64 { v := float64(40 + r.Intn(60)); return &v }
	company := func() string { return companies[r.Intn(len(companies))] }
	started := func(h int) time.Time { return now.Add(-time.Duration(h) * time.Hour) }

	completedAt := now.Add(-time.Hour)
	return []JobApplication{
		{
			UserID: userID, Company: company(), Role: "Backend Engineer", Difficulty: DifficultyEasy,
			JobSource: "preset", CurrentStage: StageScreening, StartedAt: started(1),
		},
		{
			UserID: userID, Company: company(), Role: "Platform Engineer", Difficulty: DifficultyMedium,
			JobSource: "preset", CurrentStage: StageTechnical, StartedAt: started(5),
			ScreeningPassed: &yes,
		},
		{
			UserID: userID, Company: company(), Role: "Data Engineer", Difficulty: DifficultyHard,
			JobSource: "preset", CurrentStage: StageResult, StartedAt: started(30),
			ScreeningPassed: &yes, TechnicalPassed: &no, TechnicalScore: score(),
			Completed: true, CompletedAt: &completedAt, FinalHired: &no,
		},
		{
			UserID: userID, Company: company(), Role: "Site Reliability Engineer", Difficulty: DifficultyMedium,
			JobSource: "preset", CurrentStage: StageResult, StartedAt: started(72),
			ScreeningPassed: &yes, TechnicalPassed: &yes, TechnicalScore: score(),
			BehavioralPassed: &yes, BehavioralScore: score(),
			Completed: true, CompletedAt: &completedAt, FinalHired: &yes, FinalWeightedScore: score(),
		},
	}
}
