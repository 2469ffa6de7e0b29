package ipc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"sync"
	"time"

	"log/slog"

	"uplink/internal/daemon"
	"uplink/internal/journal"
	"uplink/internal/logging"
	"uplink/internal/logs"
)

// Server exposes daemon control via JSON-RPC over a Unix domain socket.
type Server struct {
	path      string
	daemon    *daemon.Daemon
	logger    *slog.Logger
	listener  net.Listener
	rpcServer *rpc.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer configures the IPC server at the given socket path.
func NewServer(ctx context.Context, path string, d *daemon.Daemon, logger *slog.Logger) (*Server, error) {
	if d == nil {
		return nil, errors.New("ipc server requires daemon")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}

	rpcServer := rpc.NewServer()
	srv := &service{daemon: d, logger: logger, ctx: ctx}
	if err := rpcServer.RegisterName("Uplink", srv); err != nil {
		listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	return &Server{
		path:      path,
		daemon:    d,
		logger:    logger,
		listener:  listener,
		rpcServer: rpcServer,
		ctx:       serverCtx,
		cancel:    cancel,
	}, nil
}

// Serve starts accepting RPC connections until the context is canceled.
func (s *Server) Serve() {
	s.logger.Debug("IPC server listening", logging.String("socket", s.path))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				select {
				case <-s.ctx.Done():
					return
				default:
				}
				s.logger.Warn("accept failed",
					logging.Error(err),
					logging.String(logging.FieldEventType, "ipc_accept_failed"),
					logging.String(logging.FieldImpact, "IPC clients may fail to connect"),
					logging.String(logging.FieldErrorHint, "check socket permissions and restart the daemon if needed"))
				continue
			}
			s.wg.Add(1)
			go func(c net.Conn) {
				defer s.wg.Done()
				s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(c))
			}(conn)
		}
	}()
}

// Close stops the server and removes the socket file.
func (s *Server) Close() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.wg.Wait()
	if err := os.RemoveAll(s.path); err != nil {
		s.logger.Warn("failed to remove socket",
			logging.String("socket", s.path),
			logging.Error(err),
			logging.String(logging.FieldEventType, "ipc_socket_cleanup_failed"),
			logging.String(logging.FieldImpact, "stale IPC socket may block future starts"),
			logging.String(logging.FieldErrorHint, "remove the socket file manually or rerun `uplink stop --daemon`"))
	}
}

type service struct {
	daemon *daemon.Daemon
	logger *slog.Logger
	ctx    context.Context
}

func (s *service) log() *slog.Logger {
	if s.logger == nil {
		return logging.NewNop()
	}
	return s.logger.With(logging.String(logging.FieldComponent, "ipc"))
}

// NewHistoryEntry converts a journal row into its wire representation. The
// CLI reuses it when it reads the journal directly because no daemon is up.
func NewHistoryEntry(rec *journal.Recording) HistoryEntry {
	return HistoryEntry{
		ID:           rec.ID,
		CycleID:      rec.CycleID,
		BaseName:     rec.BaseName,
		SourcePath:   rec.SourcePath,
		Status:       string(rec.Status),
		ShareURL:     rec.ShareURL,
		ErrorMessage: rec.ErrorMessage,
		SizeBytes:    rec.SizeBytes,
		DetectedAt:   rec.DetectedAt,
		CompletedAt:  rec.CompletedAt,
	}
}

func (s *service) Ping(_ PingRequest, resp *PingResponse) error {
	resp.PID = os.Getpid()
	return nil
}

func (s *service) Start(_ StartRequest, resp *StartResponse) error {
	s.log().Debug("watch start requested")
	if s.daemon.Watching() {
		resp.Started = true
		resp.Message = "already watching"
		return nil
	}
	if err := s.daemon.Start(s.ctx); err != nil {
		resp.Started = false
		resp.Message = err.Error()
		return nil
	}
	resp.Started = true
	resp.Message = "watching for recordings"
	s.log().Info("watching started via IPC",
		logging.String(logging.FieldEventType, "watch_start"))
	return nil
}

func (s *service) Stop(_ StopRequest, resp *StopResponse) error {
	s.log().Debug("watch stop requested")
	s.daemon.Stop()
	resp.Stopped = true
	s.log().Info("watching stopped via IPC",
		logging.String(logging.FieldEventType, "watch_stop"))
	return nil
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	status := s.daemon.Status(s.ctx)
	resp.Watching = status.Watching
	resp.Phase = status.Phase
	resp.ActiveBase = status.ActiveBase
	resp.CycleID = status.CycleID
	resp.Uploading = status.Uploading
	resp.KnownFiles = status.KnownFiles
	resp.Journal = JournalSummary{
		Total:    status.Journal.Total,
		InFlight: status.Journal.InFlight,
		Shared:   status.Journal.Shared,
		Failed:   status.Journal.Failed,
		Aborted:  status.Journal.Aborted,
	}
	resp.JournalPath = status.JournalPath
	resp.LockPath = status.LockPath
	resp.SocketPath = status.SocketPath
	resp.PID = status.PID
	if len(status.Dependencies) > 0 {
		resp.Dependencies = make([]DependencyStatus, 0, len(status.Dependencies))
		for _, dep := range status.Dependencies {
			resp.Dependencies = append(resp.Dependencies, DependencyStatus{
				Name:        dep.Name,
				Command:     dep.Command,
				Description: dep.Description,
				Optional:    dep.Optional,
				Available:   dep.Available,
				Detail:      dep.Detail,
			})
		}
	}
	return nil
}

func (s *service) Devices(req DevicesRequest, resp *DevicesResponse) error {
	inv := s.daemon.Devices(s.ctx, req.Refresh)
	screen, camera, audio := s.daemon.SelectedDevices()
	resp.RefreshedAt = inv.RefreshedAt
	resp.Screens = make([]ScreenInfo, 0, len(inv.Screens))
	for _, sc := range inv.Screens {
		resp.Screens = append(resp.Screens, ScreenInfo{
			Output:   sc.Output,
			Width:    sc.Width,
			Height:   sc.Height,
			Primary:  sc.Primary,
			Selected: sc.Output == screen || (screen == "" && sc.Primary),
		})
	}
	resp.Cameras = make([]CameraInfo, 0, len(inv.Cameras))
	for _, cam := range inv.Cameras {
		resp.Cameras = append(resp.Cameras, CameraInfo{
			Device:   cam.Device,
			Label:    cam.Label,
			Selected: cam.Device == camera,
		})
	}
	resp.Audio = make([]AudioInfo, 0, len(inv.Audio))
	for _, src := range inv.Audio {
		resp.Audio = append(resp.Audio, AudioInfo{
			Name:     src.Name,
			Monitor:  src.Monitor,
			Selected: src.Name == audio,
		})
	}
	return nil
}

func (s *service) SelectDevice(req SelectDeviceRequest, resp *SelectDeviceResponse) error {
	if err := s.daemon.SelectDevice(s.ctx, req.Kind, req.Value); err != nil {
		return err
	}
	resp.Kind = req.Kind
	resp.Value = req.Value
	s.log().Info("device selected via IPC",
		logging.String(logging.FieldEventType, "device_select"),
		logging.String("kind", req.Kind),
		logging.String("value", req.Value))
	return nil
}

func (s *service) History(req HistoryRequest, resp *HistoryResponse) error {
	recs, err := s.daemon.History(s.ctx, req.Limit)
	if err != nil {
		return err
	}
	resp.Entries = make([]HistoryEntry, 0, len(recs))
	for _, rec := range recs {
		if rec == nil {
			continue
		}
		resp.Entries = append(resp.Entries, NewHistoryEntry(rec))
	}
	return nil
}

func (s *service) HistoryClear(_ HistoryClearRequest, resp *HistoryClearResponse) error {
	s.log().Debug("history clear requested")
	removed, err := s.daemon.ClearHistory(s.ctx)
	if err != nil {
		return err
	}
	resp.Removed = removed
	s.log().Info("history cleared via IPC",
		logging.String(logging.FieldEventType, "history_clear"),
		logging.Int64("removed_count", removed))
	return nil
}

func (s *service) Upload(req UploadRequest, resp *UploadResponse) error {
	s.log().Debug("manual upload requested", logging.String("path", req.Path))
	result, err := s.daemon.Upload(s.ctx, req.Path)
	if err != nil {
		return err
	}
	resp.BaseName = result.BaseName
	resp.Dest = result.Dest
	resp.URL = result.URL
	return nil
}

func (s *service) LogTail(req LogTailRequest, resp *LogTailResponse) error {
	logPath := s.daemon.LogPath()
	if logPath == "" {
		resp.Offset = 0
		return nil
	}
	wait := time.Duration(req.WaitMillis) * time.Millisecond
	if wait <= 0 && req.Follow {
		wait = time.Second
	}
	options := logs.TailOptions{
		Offset: req.Offset,
		Limit:  req.Limit,
		Follow: req.Follow,
		Wait:   wait,
	}
	ctx := s.ctx
	if req.Follow && wait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(s.ctx, wait+500*time.Millisecond)
		defer cancel()
	}
	result, err := logs.Tail(ctx, logPath, options)
	if err != nil {
		// A canceled or timed-out poll is an empty read, not a failure.
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			resp.Offset = result.Offset
			return nil
		}
		return err
	}
	resp.Lines = result.Lines
	resp.Offset = result.Offset
	return nil
}

func (s *service) TestNotification(_ TestNotificationRequest, resp *TestNotificationResponse) error {
	sent, message, err := s.daemon.TestNotification(s.ctx)
	resp.Sent = sent
	resp.Message = message
	return err
}
