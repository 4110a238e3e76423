package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/pkg/errors"

	"github.com/castdeck/castdeck/api"
	"github.com/castdeck/castdeck/caster"
	"github.com/castdeck/castdeck/internal/utils"
	"github.com/castdeck/castdeck/remux"
	"github.com/castdeck/castdeck/servefiles"
	"github.com/castdeck/castdeck/urldownloader"
)

var (
	version string
	build   string

	videoArg   = flag.String("v", "", "Path to the video file.")
	urlArg     = flag.String("u", "", "Remote video URL to spool and cast instead of a local file.")
	targetPtr  = flag.String("t", "", "Cast to a specific device IP address, skipping the device picker.")
	listPtr    = flag.Bool("l", false, "List discovered cast devices and exit.")
	apiPtr     = flag.String("api", ":8008", "Control API listen address.")
	portPtr    = flag.Int("p", 8010, "Preferred media server port.")
	ffmpegPtr  = flag.String("ffmpeg", "ffmpeg", "Path to the ffmpeg binary, used to remux incompatible containers.")
	noRemuxPtr = flag.Bool("noremux", false, "Never remux, cast the file as is.")
	versionPtr = flag.Bool("version", false, "Print version.")

	discoverTimeout = 5 * time.Second
)

func main() {
	flag.Parse()

	exit, err := checkflags()
	check(err)
	if exit {
		os.Exit(0)
	}

	c := caster.New()
	c.LogOutput = os.Stderr

	found, err := c.Discover(discoverTimeout)
	check(err)

	target := *targetPtr
	if target == "" {
		if len(found) == 0 {
			check(errors.New("no cast devices found"))
		}
		target = found[0].Addr
	}
	check(c.SelectDevice(target))

	runCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	videoFile, cleanup, err := prepareMedia(runCtx)
	check(err)
	if cleanup != nil {
		defer cleanup()
	}

	ip, err := utils.LocalIP()
	check(err)
	pickedPort, err := utils.CheckAndPickPort(ip, *portPtr)
	check(err)
	mediaPort, err := strconv.Atoi(pickedPort)
	check(err)

	srv := servefiles.NewServer(net.JoinHostPort(ip, pickedPort))
	serverStarted := make(chan struct{})
	go func() {
		check(srv.Serve(serverStarted, videoFile))
	}()
	<-serverStarted
	defer srv.Stop()

	gateway := api.NewGateway(c, mediaPort)
	gateway.LogOutput = os.Stderr
	go gateway.Serve(runCtx)

	httpSrv := &http.Server{Addr: *apiPtr, Handler: gateway.Router()}
	go func() {
		if err := httpSrv.ListenAndServe(); err != http.ErrServerClosed {
			check(err)
		}
	}()
	defer httpSrv.Close()

	check(c.Begin(mediaPort))
	defer c.Close()

	<-runCtx.Done()
}

// prepareMedia resolves the -v/-u flags to a local file path, remuxing
// into an mp4 container first when the codecs allow a stream copy but
// the container is not directly castable.
func prepareMedia(ctx context.Context) (string, func(), error) {
	if *urlArg != "" {
		media, err := urldownloader.Download(ctx, *urlArg)
		if err != nil {
			return "", nil, err
		}
		if err := media.WaitForValidMedia(); err != nil {
			media.Close()
			return "", nil, err
		}
		return media.F.Name(), media.Close, nil
	}

	absVideoFile, err := filepath.Abs(*videoArg)
	if err != nil {
		return "", nil, err
	}

	if *noRemuxPtr || filepath.Ext(absVideoFile) == ".mp4" {
		return absVideoFile, nil, nil
	}

	streams, err := remux.Streams(*ffmpegPtr, absVideoFile)
	if err != nil {
		// Without ffmpeg try the file as is and let the device decide.
		return absVideoFile, nil, nil
	}

	for _, s := range streams {
		fmt.Printf("Stream %s\n", s.Description())
	}

	if !remux.CompatibleStreams(streams) {
		// Codecs we can't stream copy. Same fallback.
		return absVideoFile, nil, nil
	}

	out := filepath.Join(os.TempDir(), "castdeck-remux.mp4")
	if err := remux.Remux(ctx, *ffmpegPtr, absVideoFile, out); err != nil {
		return absVideoFile, nil, nil
	}
	return out, func() { os.Remove(out) }, nil
}

func check(err error) {
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Encountered error(s): %s\n", err)
		os.Exit(1)
	}
}

func checkflags() (exit bool, err error) {
	checkVerflag()

	if *listPtr {
		if err := listFlagFunction(); err != nil {
			return false, errors.Wrap(err, "checkflags error")
		}
		return true, nil
	}

	if err := checkTflag(); err != nil {
		return false, errors.Wrap(err, "checkflags error")
	}

	if err := checkVflag(); err != nil {
		return false, errors.Wrap(err, "checkflags error")
	}

	return false, nil
}

func checkVflag() error {
	if *urlArg != "" {
		if *videoArg != "" {
			return errors.New("-v and -u can't be used together")
		}
		return nil
	}

	if *videoArg == "" {
		return errors.New("one of -v or -u is required")
	}

	if _, err := os.Stat(*videoArg); os.IsNotExist(err) {
		return errors.Wrap(err, "checkVflag error")
	}

	return nil
}

func checkTflag() error {
	if *targetPtr == "" {
		return nil
	}

	if net.ParseIP(*targetPtr) == nil {
		return errors.New("checkTflag error: -t must be an IP address")
	}

	return nil
}

func checkVerflag() {
	if *versionPtr {
		fmt.Printf("castdeck version %s, build %s\n", version, build)
		os.Exit(0)
	}
}

func listFlagFunction() error {
	c := caster.New()
	c.LogOutput = os.Stderr

	found, err := c.Discover(discoverTimeout)
	if err != nil {
		return err
	}

	fmt.Println()
	for i, d := range found {
		fmt.Printf("Device %v\n", i+1)
		fmt.Printf("--------\n")
		fmt.Printf("Name: %s\n", d.Name)
		fmt.Printf("IP:   %s\n", d.Addr)
		fmt.Println()
	}

	return nil
}
