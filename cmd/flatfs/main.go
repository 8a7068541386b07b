// Command flatfs is an interactive shell over a flat file system image.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/keks/flatfs/blkdev"
	"github.com/keks/flatfs/fsys"
)

func main() {
	var (
		path    = flag.String("disk", "", "path of the disk image")
		blocks  = flag.Int("blocks", 0, "create the image with this many blocks if it does not exist")
		verbose = flag.Bool("v", false, "log debug messages")
	)
	flag.Parse()

	log := logrus.New()
	log.Out = os.Stderr
	log.Formatter = &logrus.TextFormatter{DisableTimestamp: true}
	if *verbose {
		log.SetLevel(logrus.DebugLevel)
	}

	if *path == "" {
		fmt.Fprintln(os.Stderr, "flatfs: -disk is required")
		flag.Usage()
		os.Exit(2)
	}

	dev, err := openDisk(*path, *blocks)
	if err != nil {
		log.WithError(err).Fatal("cannot open disk")
	}
	defer dev.Close()

	fs, err := fsys.New(dev, fsys.WithLogger(log.WithField("disk", *path)))
	if err != nil {
		log.WithError(err).Fatal("cannot set up file system")
	}

	sh := newShell(fs, os.Stdout)
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		if sh.run(scanner.Text()) == errQuit {
			break
		}
	}

	if err := scanner.Err(); err != nil {
		fmt.Fprintln(os.Stderr, "error reading input:", err)
	}
}

func openDisk(path string, blocks int) (*blkdev.Disk, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) && blocks > 0 {
		return blkdev.Create(path, blocks)
	}

	return blkdev.Open(path)
}
