package main

import (
	"gearsel/internal/changelog"
	"gearsel/internal/config"
	"gearsel/internal/manifest"
)

// changelogWriter returns nil when the sink is "none".
func changelogWriter(c *config.Config) (changelog.Writer, error) {
	var w changelog.Writer
	if c.Changelog.Sink == "file" || c.Changelog.Sink == "both" {
		fw, err := changelog.NewFileWriter(c.Changelog.Dir, c.Changelog.File)
		if err != nil {
			return nil, err
		}
		w = fw
	}
	if c.Changelog.Sink == "kafka" || c.Changelog.Sink == "both" {
		kw := changelog.NewKafkaWriter(c.Kafka.Bootstrap, c.Changelog.Topic)
		if w == nil {
			w = kw
		} else {
			w = changelog.NewMultiWriter(w, kw)
		}
	}
	return w, nil
}

func manifestPublisher(c *config.Config) manifest.Publisher {
	fs := manifest.NewFilesystemManifest(c.Snapshot.Dir)
	switch c.Manifest.Sink {
	case "kafka":
		return manifest.NewKafkaManifest(c.Kafka.Bootstrap, c.Manifest.Topic, c.Manifest.Key)
	case "both":
		return manifest.NewMultiPublisher(fs, manifest.NewKafkaManifest(c.Kafka.Bootstrap, c.Manifest.Topic, c.Manifest.Key))
	}
	return fs
}

func manifestReader(c *config.Config) manifest.Reader {
	if c.Manifest.Source == "kafka" {
		return manifest.NewKafkaReader(manifest.Brokers(c.Kafka.Bootstrap), c.Manifest.Topic, c.Manifest.Key)
	}
	return manifest.NewFilesystemManifest(c.Snapshot.Dir)
}
