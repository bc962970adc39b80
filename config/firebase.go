package config

import (
	"context"
	"errors"
	"log"
	"os"
	"sync"
	"time"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go"
	fbAuth "firebase.google.com/go/auth"
	"github.com/joho/godotenv"
	"google.golang.org/api/option"
)

var (
	firebaseApp     *firebase.App
	firestoreClient *firestore.Client
	authClient      *fbAuth.Client
	firebaseMu      sync.Mutex
)

func init() {
	// Load env from .env
	godotenv.Load()
	// IMPORTANT (Cloud Run):
	// Do NOT block startup in init() waiting for Firebase.
	// Cloud Run requires the container to start listening on $PORT quickly.
}

// GetFirestore returns the shared Firestore client, initializing with
// retries if needed. Credentials come from FIREBASE_CREDENTIALS_FILE or
// Application Default Credentials.
func GetFirestore(ctx context.Context) (*firestore.Client, error) {
	firebaseMu.Lock()
	defer firebaseMu.Unlock()
	if firestoreClient != nil {
		return firestoreClient, nil
	}
	app, err := getFirebaseApp(ctx)
	if err != nil {
		return nil, err
	}
	c, err := app.Firestore(ctx)
	if err != nil {
		return nil, err
	}
	firestoreClient = c
	return firestoreClient, nil
}

// GetFirebaseAuth returns the shared Firebase Admin auth client used to
// verify tenant ID tokens.
func GetFirebaseAuth(ctx context.Context) (*fbAuth.Client, error) {
	firebaseMu.Lock()
	defer firebaseMu.Unlock()
	if authClient != nil {
		return authClient, nil
	}
	app, err := getFirebaseApp(ctx)
	if err != nil {
		return nil, err
	}
	c, err := app.Auth(ctx)
	if err != nil {
		return nil, err
	}
	authClient = c
	return authClient, nil
}

// caller must hold firebaseMu
func getFirebaseApp(ctx context.Context) (*firebase.App, error) {
	if firebaseApp != nil {
		return firebaseApp, nil
	}

	projectID := getFirebaseProjectID()
	if projectID == "" {
		return nil, errors.New("FIREBASE_PROJECT_ID/GOOGLE_CLOUD_PROJECT not set")
	}
	conf := &firebase.Config{ProjectID: projectID}
	credFile := os.Getenv("FIREBASE_CREDENTIALS_FILE")

	var attempt int
	for {
		attempt++

		var (
			app *firebase.App
			err error
		)
		if credFile != "" {
			app, err = firebase.NewApp(ctx, conf, option.WithCredentialsFile(credFile))
		} else {
			// Uses Application Default Credentials (Cloud Run service account or GOOGLE_APPLICATION_CREDENTIALS).
			app, err = firebase.NewApp(ctx, conf)
		}
		if err == nil {
			firebaseApp = app
			log.Printf("firebase app ready (project_id=%s attempt=%d)", projectID, attempt)
			return firebaseApp, nil
		}
		if attempt >= 5 {
			return nil, err
		}

		sleep := time.Second * time.Duration(1<<min(attempt, 5))
		if sleep > 30*time.Second {
			sleep = 30 * time.Second
		}
		log.Printf("failed to init firebase app (project_id=%s attempt=%d): %v; retrying in %s", projectID, attempt, err, sleep)
		time.Sleep(sleep)
	}
}

func getFirebaseProjectID() string {
	// Prefer explicit override.
	if v := os.Getenv("FIREBASE_PROJECT_ID"); v != "" {
		return v
	}
	// Cloud Run/Cloud Functions often set this.
	if v := os.Getenv("GOOGLE_CLOUD_PROJECT"); v != "" {
		return v
	}
	// Common fallback.
	if v := os.Getenv("GCP_PROJECT"); v != "" {
		return v
	}
	return ""
}
