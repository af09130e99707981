package engine

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"

	dockerimage "github.com/docker/docker/api/types/image"

	"github.com/corvus-sh/orchd/corvuserr"
)

// PullProgressEvent mirrors one line of the engine's pull progress stream,
// the same shape the image-pull handler's §6.2 streamed-progress response
// re-frames for HTTP clients.
type PullProgressEvent struct {
	Status   string `json:"status"`
	ID       string `json:"id,omitempty"`
	Progress string `json:"progress,omitempty"`
}

// PullImage pulls ref (e.g. "nginx:1.25") and streams progress events to
// onEvent as they arrive. It returns once the pull completes or fails.
func (c *Client) PullImage(ctx context.Context, ref string, onEvent func(PullProgressEvent)) error {
	reader, err := c.sdk.ImagePull(ctx, ref, dockerimage.PullOptions{})
	if err != nil {
		return corvuserr.Wrap(corvuserr.EngineUnavailable, fmt.Sprintf("failed to pull image %q", ref), err)
	}
	defer reader.Close()

	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		var evt PullProgressEvent
		if err := json.Unmarshal(scanner.Bytes(), &evt); err != nil {
			continue
		}
		if onEvent != nil {
			onEvent(evt)
		}
	}
	if err := scanner.Err(); err != nil && err != io.EOF {
		return corvuserr.Wrap(corvuserr.EngineUnavailable, fmt.Sprintf("pull stream for %q ended with an error", ref), err)
	}
	return nil
}

// ImageSummary is the trimmed listing shape the image passthrough
// endpoints (§6.1) need.
type ImageSummary struct {
	ID   string
	Tags []string
}

// ListImages lists every image present locally.
func (c *Client) ListImages(ctx context.Context) ([]ImageSummary, error) {
	list, err := c.sdk.ImageList(ctx, dockerimage.ListOptions{})
	if err != nil {
		return nil, corvuserr.Wrap(corvuserr.EngineUnavailable, "failed to list images", err)
	}

	out := make([]ImageSummary, 0, len(list))
	for _, img := range list {
		out = append(out, ImageSummary{ID: img.ID, Tags: img.RepoTags})
	}
	return out, nil
}

// RemoveImage removes a locally stored image by ref.
func (c *Client) RemoveImage(ctx context.Context, ref string) error {
	_, err := c.sdk.ImageRemove(ctx, ref, dockerimage.RemoveOptions{})
	if err != nil {
		if dockerclientIsNotFound(err) {
			return nil
		}
		return corvuserr.Wrap(corvuserr.EngineUnavailable, fmt.Sprintf("failed to remove image %q", ref), err)
	}
	return nil
}

// ImageExists reports whether ref is present locally, used by JoinCargo
// step 4 ("Verify the target image exists (engine inspect); fail with a
// specific error if not") to surface ImageMissing before any container is
// created.
func (c *Client) ImageExists(ctx context.Context, ref string) (bool, error) {
	_, err := c.sdk.ImageInspect(ctx, ref)
	if err != nil {
		if dockerclientIsNotFound(err) {
			return false, nil
		}
		return false, corvuserr.Wrap(corvuserr.EngineUnavailable, fmt.Sprintf("failed to inspect image %q", ref), err)
	}
	return true, nil
}
