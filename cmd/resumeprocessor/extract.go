package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"resume-ats-go/internal/parser"
	"resume-ats-go/internal/processor"
	"resume-ats-go/internal/types"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
)

// 定义提取命令的命令行参数
var (
	pdfBackend      = pflag.String("pdf-backend", "ledongthuc", "PDF解析后端: ledongthuc 或 eino")
	extractSaveFile = pflag.String("extract-save", "", "保存提取内容到文件")
	vocabularyPath  = pflag.String("vocabulary", "data/skills.json", "技能词表路径 (skills 命令使用)")
)

// readResume 读取简历文件并识别格式
func readResume() types.RawDocument {
	absPath, err := filepath.Abs(*resumeFilePath)
	if err != nil {
		fmt.Printf("无法获取文件的绝对路径: %v\n", err)
		os.Exit(1)
	}
	data, err := os.ReadFile(absPath)
	if err != nil {
		fmt.Printf("无法读取文件 %s: %v\n", absPath, err)
		os.Exit(1)
	}
	doc := types.RawDocument{FileName: filepath.Base(absPath), Data: data}
	doc.Format = types.DetectFormat(doc.FileName)
	if doc.Format == types.FormatUnknown {
		fmt.Printf("不支持的文件类型: %s\n", doc.FileName)
		os.Exit(1)
	}
	return doc
}

// extractText 按所选后端提取文本
func extractText(ctx context.Context, doc types.RawDocument, log zerolog.Logger) string {
	var backend parser.PDFPageExtractor
	if *pdfBackend == "eino" {
		eino, err := parser.NewEinoPDFExtractor(ctx, parser.WithEinoLogger(log))
		if err != nil {
			fmt.Printf("创建Eino PDF提取器失败: %v\n", err)
			os.Exit(1)
		}
		backend = eino
	}

	text, ok := parser.NewDocumentExtractor(backend, log).Extract(ctx, doc)
	if !ok {
		fmt.Println("文档中没有可提取的文本")
		os.Exit(1)
	}
	return text
}

// 处理提取文本命令
func handleExtractCommand() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	doc := readResume()
	fmt.Printf("准备处理文件: %s (%s)\n", doc.FileName, doc.Format)

	startTime := time.Now()
	text := extractText(ctx, doc, zerolog.New(os.Stderr).Level(zerolog.WarnLevel))
	fmt.Printf("提取完成! 耗时: %v\n", time.Since(startTime))

	fmt.Printf("\n===== 提取的文本 (总计 %d 字符) =====\n", len(text))
	displayText := text
	if *maxLen >= 0 && len(text) > *maxLen {
		displayText = text[:*maxLen] + "...(已截断，使用 --maxlen 参数显示更多)"
	}
	fmt.Println(displayText)

	fmt.Printf("\n识别到的段落标题数: %d\n", processor.CountSections(text))

	if *extractSaveFile != "" {
		if err := os.WriteFile(*extractSaveFile, []byte(text), 0644); err != nil {
			fmt.Printf("保存到文件失败: %v\n", err)
		} else {
			fmt.Printf("文本已保存到: %s\n", *extractSaveFile)
		}
	}
}

// 处理联系方式与技能命令，只使用本地技能词表
func handleSkillsCommand() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	log := zerolog.New(os.Stderr).Level(zerolog.WarnLevel)
	text := extractText(ctx, readResume(), log)

	phrases, err := parser.LoadSkillVocabulary(*vocabularyPath)
	if err != nil {
		fmt.Printf("加载技能词表失败: %v\n", err)
		os.Exit(1)
	}
	skills := processor.NewSkillExtractor(parser.NewVocabularyRuler(phrases), log).Extract(ctx, text)

	out, _ := json.MarshalIndent(map[string]interface{}{
		"contact": processor.ExtractContactInfo(text),
		"skills":  skills,
	}, "", "  ")
	fmt.Println(string(out))
}
