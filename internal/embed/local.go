package embed

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/daulet/tokenizers"
	ort "github.com/yalue/onnxruntime_go"

	ckerrors "github.com/semcs/ck/internal/errors"
)

const (
	// localMaxSeqLen caps token length per input; longer inputs are truncated.
	localMaxSeqLen = 512
	// localBatchSize bounds memory and inference latency per ONNX call.
	localBatchSize = 8
)

// localModelDims maps bundled local models to their output dimensions.
var localModelDims = map[string]int{
	"bge-small":         384,
	"all-minilm-l6-v2":  384,
	"nomic-embed-text":  768,
}

// DefaultLocalModel is used when no model is configured.
const DefaultLocalModel = "bge-small"

// LocalEmbedder runs a FastEmbed-compatible ONNX model with a HuggingFace
// tokenizer. The model directory must contain model.onnx and tokenizer.json.
type LocalEmbedder struct {
	session   *ort.DynamicAdvancedSession
	tokenizer *tokenizers.Tokenizer
	model     string
	dim       int
}

// NewLocalEmbedder loads the model from modelDir (typically
// <cache>/ck/models/<model>).
func NewLocalEmbedder(model, modelDir string) (*LocalEmbedder, error) {
	dim, ok := localModelDims[model]
	if !ok {
		return nil, ckerrors.New(ckerrors.KindEmbedding, "unknown local model %q", model)
	}

	modelPath := filepath.Join(modelDir, "model.onnx")
	tokenPath := filepath.Join(modelDir, "tokenizer.json")
	if _, err := os.Stat(modelPath); err != nil {
		return nil, ckerrors.New(ckerrors.KindEmbedding,
			"model not found at %s", modelPath).
			WithSuggestion("download the model or select the dummy/jina backend")
	}

	if err := ort.InitializeEnvironment(); err != nil {
		return nil, ckerrors.Wrap(ckerrors.KindEmbedding, err, "initialize onnxruntime")
	}

	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("session options: %w", err)
	}
	defer func() { _ = opts.Destroy() }()

	threads := runtime.NumCPU()
	if threads > 4 {
		threads = 4
	}
	if err := opts.SetIntraOpNumThreads(threads); err != nil {
		return nil, fmt.Errorf("set intra threads: %w", err)
	}
	if err := opts.SetInterOpNumThreads(1); err != nil {
		return nil, fmt.Errorf("set inter threads: %w", err)
	}

	session, err := ort.NewDynamicAdvancedSession(modelPath,
		[]string{"input_ids", "attention_mask", "token_type_ids"},
		[]string{"last_hidden_state"}, opts)
	if err != nil {
		return nil, ckerrors.Wrap(ckerrors.KindEmbedding, err, "create onnx session")
	}

	tk, err := tokenizers.FromFile(tokenPath)
	if err != nil {
		_ = session.Destroy()
		return nil, ckerrors.Wrap(ckerrors.KindEmbedding, err, "load tokenizer")
	}

	return &LocalEmbedder{
		session:   session,
		tokenizer: tk,
		model:     model,
		dim:       dim,
	}, nil
}

func (l *LocalEmbedder) ID() string        { return "local" }
func (l *LocalEmbedder) Dim() int          { return l.dim }
func (l *LocalEmbedder) ModelName() string { return l.model }

func (l *LocalEmbedder) Close() error {
	if l.session != nil {
		_ = l.session.Destroy()
	}
	if l.tokenizer != nil {
		_ = l.tokenizer.Close()
	}
	return nil
}

func (l *LocalEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for i := 0; i < len(texts); i += localBatchSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		end := i + localBatchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch, err := l.embedBatch(texts[i:end])
		if err != nil {
			return nil, fmt.Errorf("batch [%d:%d]: %w", i, end, err)
		}
		out = append(out, batch...)
	}
	return out, nil
}

func (l *LocalEmbedder) embedBatch(texts []string) ([][]float32, error) {
	batch := len(texts)

	ids := make([][]int64, batch)
	masks := make([][]int64, batch)
	maxLen := 0
	for i, text := range texts {
		enc := l.tokenizer.EncodeWithOptions(text, true, tokenizers.WithReturnAttentionMask())
		tok := enc.IDs
		if len(tok) > localMaxSeqLen {
			tok = tok[:localMaxSeqLen]
		}
		ids[i] = make([]int64, len(tok))
		masks[i] = make([]int64, len(tok))
		for j, v := range tok {
			ids[i][j] = int64(v)
			masks[i][j] = 1
		}
		if len(tok) > maxLen {
			maxLen = len(tok)
		}
	}
	if maxLen == 0 {
		return nil, fmt.Errorf("all inputs tokenized to zero length")
	}

	flatIDs := make([]int64, batch*maxLen)
	flatMask := make([]int64, batch*maxLen)
	flatType := make([]int64, batch*maxLen)
	for i := range ids {
		copy(flatIDs[i*maxLen:], ids[i])
		copy(flatMask[i*maxLen:], masks[i])
	}

	shape := ort.NewShape(int64(batch), int64(maxLen))
	idsT, err := ort.NewTensor(shape, flatIDs)
	if err != nil {
		return nil, err
	}
	defer func() { _ = idsT.Destroy() }()
	maskT, err := ort.NewTensor(shape, flatMask)
	if err != nil {
		return nil, err
	}
	defer func() { _ = maskT.Destroy() }()
	typeT, err := ort.NewTensor(shape, flatType)
	if err != nil {
		return nil, err
	}
	defer func() { _ = typeT.Destroy() }()

	outputs := []ort.Value{nil}
	if err := l.session.Run([]ort.Value{idsT, maskT, typeT}, outputs); err != nil {
		return nil, ckerrors.Wrap(ckerrors.KindEmbedding, err, "onnx inference")
	}
	defer func() {
		if outputs[0] != nil {
			_ = outputs[0].Destroy()
		}
	}()

	hiddenTensor, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("unexpected output tensor type")
	}
	hidden := hiddenTensor.GetData()
	seqLen := int(hiddenTensor.GetShape()[1])

	// Mean pooling over attended tokens, then L2 normalize so dot product
	// equals cosine similarity.
	vectors := make([][]float32, batch)
	for i := 0; i < batch; i++ {
		vec := make([]float32, l.dim)
		attended := 0
		for t := 0; t < len(masks[i]) && t < seqLen; t++ {
			if masks[i][t] == 0 {
				continue
			}
			attended++
			base := (i*seqLen + t) * l.dim
			for d := 0; d < l.dim; d++ {
				vec[d] += hidden[base+d]
			}
		}
		if attended > 0 {
			inv := float32(1) / float32(attended)
			for d := range vec {
				vec[d] *= inv
			}
		}
		normalize(vec)
		vectors[i] = vec
	}

	return vectors, nil
}
