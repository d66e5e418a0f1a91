package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	log "github.com/go-pkgz/lgr"
	"github.com/go-pkgz/repeater"
	"github.com/go-pkgz/repeater/strategy"
	"github.com/umputun/go-flags"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/mediaminer/jobsync/app/api"
	"github.com/mediaminer/jobsync/app/conn"
	"github.com/mediaminer/jobsync/app/control"
	"github.com/mediaminer/jobsync/app/files"
	"github.com/mediaminer/jobsync/app/history"
	"github.com/mediaminer/jobsync/app/joblog"
	"github.com/mediaminer/jobsync/app/notify"
	"github.com/mediaminer/jobsync/app/presets"
	"github.com/mediaminer/jobsync/app/session"
	"github.com/mediaminer/jobsync/app/store"
	"github.com/mediaminer/jobsync/app/web"
)

var opts struct {
	Presets string `short:"p" long:"presets" env:"JOBSYNC_PRESETS" description:"yaml file with default form options"`
	Dbg     bool   `long:"dbg" env:"JOBSYNC_DEBUG" description:"debug mode"`

	Server struct {
		URL          string        `long:"url" env:"URL" default:"http://localhost:8000" description:"media miner backend url"`
		Timeout      time.Duration `long:"timeout" env:"TIMEOUT" default:"30s" description:"backend request timeout"`
		Attempts     int           `long:"attempts" env:"ATTEMPTS" default:"3" description:"attempts for metadata and files requests"`
		PingInterval time.Duration `long:"ping" env:"PING" default:"1500ms" description:"job channel keepalive interval"`
	} `group:"server" namespace:"server" env-namespace:"JOBSYNC_SERVER"`

	Store struct {
		Type string `long:"type" env:"TYPE" choice:"sqlite" choice:"files" choice:"memory" default:"sqlite" description:"state store type"`
		Path string `long:"path" env:"PATH" description:"sqlite file or files directory, jobsync.db or jobsync by default"`
	} `group:"store" namespace:"store" env-namespace:"JOBSYNC_STORE"`

	Job struct {
		URL           string `long:"url" env:"URL" description:"source url"`
		Mode          string `long:"mode" env:"MODE" choice:"audio" choice:"video" description:"download mode"`
		Title         string `long:"title" env:"TITLE" description:"custom title"`
		Artist        string `long:"artist" env:"ARTIST" description:"custom artist"`
		Year          string `long:"year" env:"YEAR" description:"custom year"`
		Album         string `long:"album" env:"ALBUM" description:"custom album"`
		Genre         string `long:"genre" env:"GENRE" description:"custom genre"`
		Playlist      bool   `long:"playlist" env:"PLAYLIST" description:"download whole playlist"`
		PlaylistItems string `long:"playlist-items" env:"PLAYLIST_ITEMS" description:"playlist items, i.e. 1-3,7"`
		CookiesFile   string `long:"cookies" env:"COOKIES" description:"cookies file in netscape format"`
		Metadata      bool   `long:"metadata" env:"METADATA" description:"fetch metadata before submit"`
		Submit        bool   `long:"submit" env:"SUBMIT" description:"submit the job"`
		StopOnExit    bool   `long:"stop-on-exit" env:"STOP_ON_EXIT" description:"stop the active job on exit instead of leaving it resumable"`
	} `group:"job" namespace:"job" env-namespace:"JOBSYNC_JOB"`

	Audio struct {
		Format  string `long:"format" env:"FORMAT" description:"audio format, i.e. mp3, opus"`
		Bitrate string `long:"bitrate" env:"BITRATE" description:"audio bitrate in kbps"`
	} `group:"audio" namespace:"audio" env-namespace:"JOBSYNC_AUDIO"`

	Video struct {
		Container string `long:"container" env:"CONTAINER" description:"video container, i.e. mp4, mkv"`
		Height    string `long:"height" env:"HEIGHT" description:"max video height or none"`
		Codec     string `long:"codec" env:"CODEC" description:"preferred video codec"`
	} `group:"video" namespace:"video" env-namespace:"JOBSYNC_VIDEO"`

	Notify struct {
		EnabledError       bool          `long:"enabled-error" env:"ENABLED_ERROR" description:"deliver failed jobs"`
		EnabledCompletion  bool          `long:"enabled-complete" env:"ENABLED_COMPLETE" description:"deliver completed jobs"`
		SMTPHost           string        `long:"smtp-host" env:"SMTP_HOST" description:"SMTP host"`
		SMTPPort           int           `long:"smtp-port" env:"SMTP_PORT" default:"25" description:"SMTP port"`
		SMTPUsername       string        `long:"smtp-username" env:"SMTP_USERNAME" description:"SMTP user name"`
		SMTPPassword       string        `long:"smtp-password" env:"SMTP_PASSWORD" description:"SMTP password"`
		SMTPTLS            bool          `long:"smtp-tls" env:"SMTP_TLS" description:"enable SMTP TLS"`
		Timeout            time.Duration `long:"timeout" env:"TIMEOUT" default:"10s" description:"delivery timeout"`
		FromEmail          string        `long:"from" env:"FROM" description:"SMTP from email"`
		ToEmails           []string      `long:"to" env:"TO" env-delim:"," description:"SMTP to email(s)"`
		WebHooks           []string      `long:"webhook" env:"WEBHOOK" env-delim:"," description:"webhook url(s)"`
		ErrorTemplate      string        `long:"err-template" env:"ERR_TEMPLATE" description:"error message html template file"`
		CompletionTemplate string        `long:"complete-template" env:"COMPLETE_TEMPLATE" description:"completion message html template file"`
		MaxRecent          int           `long:"max-recent" env:"MAX_RECENT" default:"50" description:"kept notifications"`
		HostName           string        `long:"host" env:"HOSTNAME" description:"host name shown in messages"`
	} `group:"notify" namespace:"notify" env-namespace:"JOBSYNC_NOTIFY"`

	Web struct {
		Enabled      bool    `long:"enabled" env:"ENABLED" description:"serve control api"`
		Address      string  `long:"address" env:"ADDRESS" default:"127.0.0.1:8090" description:"listen address"`
		PasswordHash string  `long:"password-hash" env:"PASSWORD_HASH" description:"bcrypt hash of basic auth password for user jobsync"`
		RateLimit    float64 `long:"rate-limit" env:"RATE_LIMIT" default:"10" description:"mutating requests per second, 0 to disable"`
	} `group:"web" namespace:"web" env-namespace:"JOBSYNC_WEB"`

	Files struct {
		Refresh string `long:"refresh" env:"REFRESH" description:"files refresh schedule, i.e. @every 5m"`
	} `group:"files" namespace:"files" env-namespace:"JOBSYNC_FILES"`

	Log struct {
		Enabled         bool   `long:"enabled" env:"ENABLED" description:"enable logging to file"`
		Filename        string `long:"filename" env:"FILENAME" default:"jobsync.log" description:"file to write logs to"`
		MaxSize         int    `long:"max-size" env:"MAX_SIZE" default:"100" description:"maximum size in megabytes before it gets rotated"`
		MaxBackups      int    `long:"max-backups" env:"MAX_BACKUPS" default:"10" description:"maximum number of old log files to retain"`
		MaxAge          int    `long:"max-age" env:"MAX_AGE" default:"0" description:"maximum number of days to retain old log files"`
		EnabledCompress bool   `long:"compress" env:"COMPRESS" description:"compress rotated log files"`
	} `group:"log" namespace:"log" env-namespace:"JOBSYNC_LOG"`
}

var revision = "unknown"

func main() {
	fmt.Printf("jobsync %s\n", revision)

	if _, err := flags.Parse(&opts); err != nil {
		os.Exit(2)
	}
	setupLogs()

	defer func() {
		if x := recover(); x != nil {
			log.Printf("[WARN] run time panic:\n%v", x)
			panic(x)
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	signals(cancel)

	if err := run(ctx); err != nil {
		log.Printf("[ERROR] %v", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	kv, closeStore, err := makeStore()
	if err != nil {
		return err
	}
	defer closeStore()

	defaults, err := makeDefaults()
	if err != nil {
		return err
	}

	client := api.New(api.Params{
		BaseURL: opts.Server.URL,
		Timeout: opts.Server.Timeout,
		Repeater: repeater.New(&strategy.Backoff{Repeats: opts.Server.Attempts, Duration: time.Second,
			Factor: 2, Jitter: true}),
	})

	sessionStore := session.New(kv, defaults)
	sessionStore.Restore()
	jobLog := joblog.New(kv)
	historyStore := history.New(kv)
	filesCache := files.New(client)
	notifier := makeNotifier()

	ctrl := control.New(control.Params{
		Backend:      client,
		Dialer:       conn.WSDialer{BaseURL: opts.Server.URL},
		Session:      sessionStore,
		JobLog:       jobLog,
		History:      historyStore,
		Files:        filesCache,
		Notifier:     notifier,
		PingInterval: opts.Server.PingInterval,
		Timeout:      opts.Server.Timeout,
	})

	form, err := jobForm()
	if err != nil {
		return err
	}
	if _, err = ctrl.UpdateForm(form); err != nil {
		return fmt.Errorf("can't apply job options: %w", err)
	}

	if jobID := ctrl.Resume(ctx); jobID != "" {
		if opts.Job.Submit {
			log.Printf("[WARN] job %s is still active, submit skipped", jobID)
		}
	} else if opts.Job.Submit {
		if err := submit(ctx, ctrl); err != nil {
			return err
		}
	}

	if opts.Files.Refresh != "" {
		go func() {
			if err := filesCache.Run(ctx, opts.Files.Refresh); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("[WARN] files refresh stopped, %v", err)
			}
		}()
	}

	if opts.Web.Enabled {
		srv, err := web.New(web.Config{
			Controller:    ctrl,
			Session:       sessionStore,
			JobLog:        jobLog,
			History:       historyStore,
			Files:         filesCache,
			Notifications: notifier,
			PasswordHash:  opts.Web.PasswordHash,
			RateLimit:     opts.Web.RateLimit,
			Version:       revision,
		})
		if err != nil {
			return err
		}
		if err := srv.Run(ctx, opts.Web.Address); err != nil {
			return err
		}
	} else if err := ctrl.Wait(ctx); err == nil {
		ss := sessionStore.Get()
		log.Printf("[INFO] done, %s", nonEmpty(ss.CurrentProgress, "no active job"))
		return nil
	}

	shutdown(ctrl, sessionStore)
	return nil
}

// submit creates the job from the current form, optionally fetching metadata for history first
func submit(ctx context.Context, ctrl *control.Controller) error {
	if opts.Job.Metadata {
		if md, err := ctrl.FetchMetadata(ctx); err != nil {
			log.Printf("[WARN] %v", err)
		} else {
			log.Printf("[INFO] metadata: %q by %s", md.Title, nonEmpty(md.Artist, md.Uploader))
		}
	}
	jobID, err := ctrl.Submit(ctx)
	if err != nil {
		return fmt.Errorf("can't submit job: %w", err)
	}
	log.Printf("[INFO] submitted job %s", jobID)
	return nil
}

// shutdown stops the active job if requested, otherwise leaves it for the next run
func shutdown(ctrl *control.Controller, ss *session.Store) {
	jobID := ss.Get().ActiveJobID
	if jobID == "" {
		return
	}
	if !opts.Job.StopOnExit {
		log.Printf("[INFO] job %s left active, it will be resumed on the next start", jobID)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), opts.Server.Timeout)
	defer cancel()
	if err := ctrl.Stop(ctx); err != nil {
		log.Printf("[WARN] failed to stop job %s, %v", jobID, err)
		return
	}
	log.Printf("[INFO] job %s stopped", jobID)
}

// makeStore opens the state store, returned func closes it
func makeStore() (store.KV, func(), error) {
	switch opts.Store.Type {
	case "memory":
		return store.NewMemory(), func() {}, nil
	case "files":
		fs, err := store.NewFiles(nonEmpty(opts.Store.Path, "jobsync"))
		if err != nil {
			return nil, nil, err
		}
		log.Printf("[INFO] state store %s", fs)
		return fs, func() {}, nil
	default:
		db, err := store.NewSQLite(nonEmpty(opts.Store.Path, "jobsync.db"))
		if err != nil {
			return nil, nil, err
		}
		log.Printf("[INFO] state store %s", db)
		return db, func() {
			if err := db.Close(); err != nil {
				log.Printf("[WARN] failed to close state store, %v", err)
			}
		}, nil
	}
}

// makeDefaults makes default form from presets file, if any
func makeDefaults() (session.Session, error) {
	if opts.Presets == "" {
		return session.Defaults(), nil
	}
	p, err := presets.Load(opts.Presets)
	if err != nil {
		return session.Session{}, err
	}
	log.Printf("[INFO] presets loaded from %s", opts.Presets)
	return p.Apply(session.Defaults()), nil
}

// jobForm makes form update from job flags, unset flags keep the restored values
func jobForm() (control.Form, error) {
	str := func(v string) *string {
		if v == "" {
			return nil
		}
		return &v
	}
	res := control.Form{
		URL:           str(opts.Job.URL),
		CustomTitle:   str(opts.Job.Title),
		CustomArtist:  str(opts.Job.Artist),
		CustomYear:    str(opts.Job.Year),
		CustomAlbum:   str(opts.Job.Album),
		CustomGenre:   str(opts.Job.Genre),
		PlaylistItems: str(opts.Job.PlaylistItems),
	}
	if opts.Job.Mode != "" {
		mode := session.Mode(opts.Job.Mode)
		res.Mode = &mode
	}
	if opts.Job.Playlist {
		res.AllowPlaylist = &opts.Job.Playlist
	}
	if opts.Job.CookiesFile != "" {
		data, err := os.ReadFile(opts.Job.CookiesFile)
		if err != nil {
			return control.Form{}, fmt.Errorf("can't read cookies: %w", err)
		}
		res.CookieText = str(string(data))
	}
	return res, nil
}

// makeNotifier makes notifications service, delivery is enabled only with destinations set
func makeNotifier() *notify.Service {
	enabled := opts.Notify.EnabledError || opts.Notify.EnabledCompletion
	if enabled && opts.Notify.FromEmail == "" {
		opts.Notify.FromEmail = "jobsync@" + makeHostName()
	}
	sp := notify.SendersParams{Timeout: opts.Notify.Timeout}
	if enabled {
		sp = notify.SendersParams{
			SMTPHost:     opts.Notify.SMTPHost,
			SMTPPort:     opts.Notify.SMTPPort,
			SMTPTLS:      opts.Notify.SMTPTLS,
			SMTPUsername: opts.Notify.SMTPUsername,
			SMTPPassword: opts.Notify.SMTPPassword,
			FromEmail:    opts.Notify.FromEmail,
			ToEmails:     opts.Notify.ToEmails,
			WebHooks:     opts.Notify.WebHooks,
			Timeout:      opts.Notify.Timeout,
		}
	}
	return notify.NewService(notify.Params{
		MaxRecent:          opts.Notify.MaxRecent,
		EnabledError:       opts.Notify.EnabledError,
		EnabledCompletion:  opts.Notify.EnabledCompletion,
		ErrorTemplate:      opts.Notify.ErrorTemplate,
		CompletionTemplate: opts.Notify.CompletionTemplate,
		Host:               makeHostName(),
	}, sp)
}

func makeHostName() string {
	if opts.Notify.HostName != "" {
		return opts.Notify.HostName
	}
	host, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return host
}

func nonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// setupLogs configures lgr, logs go to the rotated file if enabled. Returns the log writer.
func setupLogs() io.Writer {
	var out io.Writer = os.Stdout
	if opts.Log.Enabled {
		out = &lumberjack.Logger{
			Filename:   opts.Log.Filename,
			MaxSize:    opts.Log.MaxSize,
			MaxBackups: opts.Log.MaxBackups,
			MaxAge:     opts.Log.MaxAge,
			Compress:   opts.Log.EnabledCompress,
		}
	}

	if opts.Dbg {
		log.Setup(log.Out(out), log.Err(out), log.Debug, log.Msec, log.CallerFunc)
		return out
	}
	log.Setup(log.Out(out), log.Err(out), log.Msec)
	return out
}

func signals(cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	go func() {
		stacktrace := make([]byte, 8192)
		for sig := range sigChan {
			if sig == syscall.SIGQUIT { // catch SIGQUIT and print stack traces
				length := runtime.Stack(stacktrace, true)
				fmt.Println(string(stacktrace[:length]))
				continue
			}
			log.Printf("[INFO] %s received", sig)
			cancel() // terminate on SIGINT and SIGTERM
		}
	}()
	signal.Notify(sigChan, syscall.SIGQUIT, syscall.SIGTERM, syscall.SIGINT)
}
