package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/hostdeck/hostdeck/internal/auth"
	"github.com/hostdeck/hostdeck/internal/backup"
	"github.com/hostdeck/hostdeck/internal/config"
	"github.com/hostdeck/hostdeck/internal/crypto"
	"github.com/hostdeck/hostdeck/internal/database"
	"github.com/hostdeck/hostdeck/internal/handlers"
	"github.com/hostdeck/hostdeck/internal/logging"
	"github.com/hostdeck/hostdeck/internal/middleware"
	"github.com/hostdeck/hostdeck/internal/runtime"
	"github.com/hostdeck/hostdeck/internal/terminal"
)

func main() {
	// Handle CLI commands before starting the server
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--create-admin":
			runCLICommand("create-admin")
			return
		case "--reset-password":
			runCLICommand("reset-password")
			return
		}
	}

	config.Load()
	logging.Init()

	if err := database.Init(); err != nil {
		log.Fatalf("Database init: %v", err)
	}
	defer database.Close()

	log.Printf("Config: AuthDisabled=%v, MaxSessions=%d", config.Cfg.AuthDisabled, config.Cfg.TerminalMaxSessions)

	// Init session store
	sessionStore := auth.NewSessionStore()
	handlers.SessionStore = sessionStore

	// Session cleanup goroutine
	go func() {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			sessionStore.Cleanup()
		}
	}()

	ctx := context.Background()
	if err := runtime.Connect(ctx); err != nil {
		log.Printf("WARNING: %v", err)
	}

	if err := applyBootstrap(); err != nil {
		log.Printf("WARNING: bootstrap: %v", err)
	}

	// Init terminal session manager
	idleTimeout, err := time.ParseDuration(config.Cfg.TerminalIdleTimeout)
	if err != nil {
		idleTimeout = terminal.DefaultIdleTimeout
	}
	sweepInterval, err := time.ParseDuration(config.Cfg.TerminalSweepInterval)
	if err != nil {
		sweepInterval = terminal.DefaultSweepInterval
	}

	registry := terminal.NewRegistry(config.Cfg.TerminalMaxSessions)
	termServer := terminal.NewServer(
		registry,
		&auth.Verifier{Store: sessionStore},
		runtime.Get(),
		terminal.DockerSpawner(config.Cfg.TerminalShell),
	)
	supervisor := terminal.NewSupervisor(registry, sweepInterval, idleTimeout)
	supervisor.Start()
	handlers.Term = termServer
	handlers.TermRegistry = registry
	log.Printf("Terminal manager initialized (max=%d, idle_timeout=%s, sweep=%s)",
		registry.Max(), idleTimeout, sweepInterval)

	// Init backup scheduler
	backupRunner := backup.NewRunner()
	handlers.BackupRunner = backupRunner
	scheduler, err := backup.NewScheduler(backupRunner)
	if err != nil {
		log.Fatalf("Backup schedule %q: %v", config.Cfg.BackupSchedule, err)
	}
	scheduler.Start()

	r := chi.NewRouter()
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)

	// Health (no auth)
	r.Get("/health", handlers.Health)

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		// Auth endpoints (no auth required)
		r.Post("/auth/login", handlers.Login)
		r.Get("/auth/setup-required", handlers.SetupRequired)
		r.Post("/auth/setup", handlers.SetupCreateAdmin)

		// Terminal WebSocket. Deliberately outside RequireAuth: the bridge
		// authenticates itself so failures arrive as WebSocket close codes
		// instead of HTTP statuses the terminal client cannot see.
		r.Get("/containers/{ref}/terminal", handlers.TerminalWS)

		// Protected routes (require auth)
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth(sessionStore))

			r.Post("/auth/logout", handlers.Logout)
			r.Get("/auth/me", handlers.GetCurrentUser)

			// Projects
			r.Get("/projects", handlers.ListProjects)
			r.Get("/projects/{id}", handlers.GetProject)

			// Containers
			r.Get("/containers", handlers.ListContainers)
			r.Get("/containers/{ref}/stats", handlers.ContainerStats)
			r.Get("/containers/{ref}/logs", handlers.ContainerLogs)

			// Databases
			r.Get("/databases", handlers.ListDatabases)
			r.Get("/databases/{id}", handlers.GetDatabase)
			r.Get("/databases/{id}/backups", handlers.ListBackups)

			// Admin-only routes
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAdmin)

				r.Post("/projects", handlers.CreateProject)
				r.Put("/projects/{id}", handlers.UpdateProject)
				r.Delete("/projects/{id}", handlers.DeleteProject)

				r.Post("/containers/{ref}/start", handlers.StartContainer)
				r.Post("/containers/{ref}/stop", handlers.StopContainer)
				r.Post("/containers/{ref}/restart", handlers.RestartContainer)

				r.Post("/databases", handlers.CreateDatabase)
				r.Put("/databases/{id}", handlers.UpdateDatabase)
				r.Delete("/databases/{id}", handlers.DeleteDatabase)
				r.Post("/databases/{id}/backup", handlers.TriggerBackup)

				// Terminal session management
				r.Get("/terminal/sessions", handlers.ListTerminalSessions)
				r.Delete("/terminal/sessions/{id}", handlers.CloseTerminalSession)

				// Settings
				r.Get("/settings", handlers.GetSettings)
				r.Put("/settings", handlers.UpdateSettings)

				// User management
				r.Get("/users", handlers.ListUsers)
				r.Post("/users", handlers.CreateUser)
				r.Delete("/users/{id}", handlers.DeleteUser)
				r.Put("/users/{id}/role", handlers.UpdateUserRole)
				r.Post("/users/{id}/reset-password", handlers.UpdateUserPassword)

				// Server logs
				r.Get("/server/logs", handlers.GetServerLogs)
				r.Delete("/server/logs", handlers.ClearServerLogs)
			})
		})
	})

	// Graceful shutdown
	srv := &http.Server{
		Addr:    config.Cfg.ListenAddr,
		Handler: r,
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Printf("Server starting on %s", config.Cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-sigCtx.Done()
	log.Println("Shutting down...")

	supervisor.Shutdown()
	scheduler.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Shutdown error: %v", err)
	}
	log.Println("Server stopped")
}

// applyBootstrap registers projects and databases declared in the bootstrap
// file. Entries that already exist are left alone, so the file is safe to
// keep across restarts.
func applyBootstrap() error {
	b, err := config.LoadBootstrap()
	if err != nil || b == nil {
		return err
	}

	for _, p := range b.Projects {
		if _, err := database.GetProjectByName(p.Name); err == nil {
			continue
		}
		project := &database.Project{
			Name:         p.Name,
			DisplayName:  p.DisplayName,
			ContainerRef: p.ContainerRef,
			Image:        p.Image,
			Domain:       p.Domain,
			Status:       "created",
		}
		if project.DisplayName == "" {
			project.DisplayName = p.Name
		}
		if err := database.CreateProject(project); err != nil {
			return fmt.Errorf("bootstrap project %s: %w", p.Name, err)
		}
		log.Printf("Bootstrap: registered project %s", p.Name)
	}

	existing, err := database.ListManagedDatabases()
	if err != nil {
		return err
	}
	known := make(map[string]bool, len(existing))
	for _, d := range existing {
		known[d.Name] = true
	}

	for _, d := range b.Databases {
		if known[d.Name] {
			continue
		}
		enc, err := crypto.Encrypt(d.Password)
		if err != nil {
			return fmt.Errorf("bootstrap database %s: %w", d.Name, err)
		}
		db := &database.ManagedDatabase{
			Name:              d.Name,
			Engine:            d.Engine,
			Host:              d.Host,
			Port:              d.Port,
			Username:          d.Username,
			PasswordEncrypted: enc,
			AutoBackup:        d.AutoBackup,
		}
		if d.Project != "" {
			if p, err := database.GetProjectByName(d.Project); err == nil {
				db.ProjectID = &p.ID
			}
		}
		if err := database.CreateManagedDatabase(db); err != nil {
			return fmt.Errorf("bootstrap database %s: %w", d.Name, err)
		}
		log.Printf("Bootstrap: registered database %s", d.Name)
	}
	return nil
}

func runCLICommand(command string) {
	fs := flag.NewFlagSet(command, flag.ExitOnError)
	username := fs.String("username", "", "Username")
	password := fs.String("password", "", "Password")
	fs.Parse(os.Args[2:])

	if *username == "" || *password == "" {
		fmt.Fprintf(os.Stderr, "Usage: hostdeck --%s --username <user> --password <pass>\n", command)
		os.Exit(1)
	}

	config.Load()
	if err := database.Init(); err != nil {
		log.Fatalf("Database init: %v", err)
	}
	defer database.Close()

	hash, err := auth.HashPassword(*password)
	if err != nil {
		log.Fatalf("Failed to hash password: %v", err)
	}

	switch command {
	case "create-admin":
		user := &database.User{
			Username:     *username,
			PasswordHash: hash,
			Role:         "admin",
		}
		if err := database.CreateUser(user); err != nil {
			log.Fatalf("Failed to create admin: %v", err)
		}
		fmt.Printf("Admin user '%s' created successfully.\n", *username)

	case "reset-password":
		user, err := database.GetUserByUsername(*username)
		if err != nil {
			log.Fatalf("User '%s' not found", *username)
		}
		if err := database.UpdateUserPassword(user.ID, hash); err != nil {
			log.Fatalf("Failed to update password: %v", err)
		}
		fmt.Printf("Password reset for '%s'.\n", *username)
	}
}
