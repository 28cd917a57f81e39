package embed

import (
	"fmt"
	"path/filepath"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// ortRuntime guards the process-wide ONNX Runtime environment. The runtime
// can only be initialized once per process, so the first embedder to load
// wins and everyone shares the result.
var ortRuntime struct {
	once sync.Once
	err  error
}

func initRuntime(libPath string) error {
	ortRuntime.once.Do(func() {
		ort.SetSharedLibraryPath(libPath)
		ortRuntime.err = ort.InitializeEnvironment()
	})
	return ortRuntime.err
}

// modelSession wraps a dynamic ONNX session for a BERT-style encoder with
// inputs input_ids/attention_mask/token_type_ids and a single
// [batch, seq, dim] output.
type modelSession struct {
	session    *ort.DynamicAdvancedSession
	inputNames []string
	hiddenDim  int64
}

func newModelSession(cfg Config) (*modelSession, error) {
	libPath := cfg.LibraryPath
	if libPath == "" {
		libPath = filepath.Join(filepath.Dir(cfg.ModelPath), "libonnxruntime.so")
	}
	if err := initRuntime(libPath); err != nil {
		return nil, fmt.Errorf("onnx: initializing runtime: %w", err)
	}

	inputs, outputs, err := ort.GetInputOutputInfo(cfg.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("onnx: reading model info: %w", err)
	}

	inputNames, err := requiredInputs(inputs)
	if err != nil {
		return nil, err
	}

	if len(outputs) == 0 {
		return nil, fmt.Errorf("onnx: model has no outputs")
	}
	dims := outputs[0].Dimensions
	if len(dims) != 3 {
		return nil, fmt.Errorf("onnx: expected 3D output tensor, got %v", dims)
	}

	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("onnx: creating session options: %w", err)
	}
	defer opts.Destroy()
	opts.SetIntraOpNumThreads(4)
	opts.SetInterOpNumThreads(1)

	session, err := ort.NewDynamicAdvancedSession(
		cfg.ModelPath,
		inputNames,
		[]string{outputs[0].Name},
		opts,
	)
	if err != nil {
		return nil, fmt.Errorf("onnx: creating session: %w", err)
	}

	return &modelSession{
		session:    session,
		inputNames: inputNames,
		hiddenDim:  dims[2],
	}, nil
}

func requiredInputs(inputs []ort.InputOutputInfo) ([]string, error) {
	present := make(map[string]bool, len(inputs))
	for _, inp := range inputs {
		present[inp.Name] = true
	}
	required := []string{"input_ids", "attention_mask", "token_type_ids"}
	for _, name := range required {
		if !present[name] {
			return nil, fmt.Errorf("onnx: model missing required input %q", name)
		}
	}
	return required, nil
}

// infer runs one batched inference pass and returns the raw hidden states as
// a flat [batch * seq * dim] slice.
func (s *modelSession) infer(batch encoded) ([]float32, error) {
	shape := ort.NewShape(batch.batchSize, batch.seqLen)

	tIDs, err := ort.NewTensor(shape, batch.inputIDs)
	if err != nil {
		return nil, fmt.Errorf("onnx: input_ids tensor: %w", err)
	}
	defer tIDs.Destroy()

	tMask, err := ort.NewTensor(shape, batch.attentionMask)
	if err != nil {
		return nil, fmt.Errorf("onnx: attention_mask tensor: %w", err)
	}
	defer tMask.Destroy()

	tTypes, err := ort.NewTensor(shape, batch.tokenTypeIDs)
	if err != nil {
		return nil, fmt.Errorf("onnx: token_type_ids tensor: %w", err)
	}
	defer tTypes.Destroy()

	outShape := ort.NewShape(batch.batchSize, batch.seqLen, s.hiddenDim)
	tOut, err := ort.NewEmptyTensor[float32](outShape)
	if err != nil {
		return nil, fmt.Errorf("onnx: output tensor: %w", err)
	}
	defer tOut.Destroy()

	if err := s.session.Run([]ort.Value{tIDs, tMask, tTypes}, []ort.Value{tOut}); err != nil {
		return nil, fmt.Errorf("onnx: inference: %w", err)
	}

	src := tOut.GetData()
	out := make([]float32, len(src))
	copy(out, src)
	return out, nil
}

func (s *modelSession) close() error {
	return s.session.Destroy()
}
