package scheduler

import (
	"math"
	"math/rand"
	"slices"

	"github.com/google/uuid"
)

// randomInitChromosome 随机初始化一个染色体
func (s *Scheduler) randomInitChromosome() *Chromosome {
	genes := make([]*Gene, 0, len(s.shifts))

	for _, shift := range s.shifts {
		candidates := append([]uuid.UUID{}, s.candidates[shift.ID]...)

		// 打乱候选顺序后取前 requiredNum 个
		rand.Shuffle(len(candidates), func(i, j int) {
			candidates[i], candidates[j] = candidates[j], candidates[i]
		})
		chosenNum := min(int(shift.RequiredEmployees), len(candidates))

		genes = append(genes, &Gene{
			shiftID:     shift.ID,
			employeeIDs: candidates[:chosenNum],
			requiredNum: shift.RequiredEmployees,
			hours:       shift.Hours(),
		})
	}

	return &Chromosome{
		genes: genes,
	}
}

/**
 * 计算染色体的适应度
 * fitness = - notWorkPenalty - uncoveredPenalty - conflictPenalty - FairnessWeight * fairnessPenalty
 * 其中:
 * 		1. notWorkPenalty 为未工作惩罚（用于确保每个候选员工都尽可能工作）
 * 		2. uncoveredPenalty 为缺员惩罚（每个班次少分配一人记 1）
 * 		3. conflictPenalty 为冲突惩罚（同一员工被分配到时间重叠的两个班次）
 * 		4. fairnessPenalty 为公平性惩罚，即工作时长的方差
 */
func (s *Scheduler) calcFitness(ch *Chromosome) {
	workHours := make(map[uuid.UUID]float64, len(s.employees))
	for _, id := range s.employees {
		workHours[id] = 0
	}

	uncoveredPenalty := 0.0
	for _, gene := range ch.genes {
		for _, employeeID := range gene.employeeIDs {
			workHours[employeeID] += gene.hours
		}
		uncoveredPenalty += float64(int(gene.requiredNum) - len(gene.employeeIDs))
	}

	conflictPenalty := 0.0
	for i := range ch.genes {
		for j := i + 1; j < len(ch.genes); j++ {
			if !overlapping(ch.genes[i], ch.genes[j], s.shiftMap) {
				continue
			}
			for _, id := range ch.genes[i].employeeIDs {
				if slices.Contains(ch.genes[j].employeeIDs, id) {
					conflictPenalty += 1
				}
			}
		}
	}

	notWorkPenalty := 0.0
	for _, hours := range workHours {
		if hours == 0 {
			notWorkPenalty += 1
		}
	}

	variance := 0.0
	if len(workHours) > 0 {
		avg := 0.0
		for _, hours := range workHours {
			avg += hours
		}
		avg /= float64(len(workHours))

		for _, hours := range workHours {
			variance += math.Pow(hours-avg, 2)
		}
		variance /= float64(len(workHours))
	}

	ch.fitness = -notWorkPenalty - uncoveredPenalty - conflictPenalty - s.parameters.FairnessWeight*variance
}

// 使用轮盘赌来进行选择
// 适应度都是非正数，先平移到正数区间再按比例选择
func (s *Scheduler) selectByRoulette(pop []*Chromosome) *Chromosome {
	minFit := pop[0].fitness
	for _, ch := range pop {
		minFit = min(minFit, ch.fitness)
	}

	sumFit := 0.0
	for _, ch := range pop {
		sumFit += ch.fitness - minFit + 1
	}
	pick := rand.Float64() * sumFit
	partial := 0.0

	for _, ch := range pop {
		partial += ch.fitness - minFit + 1
		if partial >= pick {
			return ch
		}
	}

	return pop[len(pop)-1]
}

// 单点交叉
func (s *Scheduler) singlePointCrossover(ch1 *Chromosome, ch2 *Chromosome) {
	if len(ch1.genes) != len(ch2.genes) || len(ch1.genes) == 0 {
		return
	}

	point := rand.Intn(len(ch1.genes))

	// 交换两个染色体在 point 位置之后的基因
	for i := point; i < len(ch1.genes); i++ {
		ch1.genes[i], ch2.genes[i] = ch2.genes[i], ch1.genes[i]
	}
}

// 变异
// 每个已分配的员工都有一定概率被替换为其他候选，缺员的班次有一定概率补人
func (s *Scheduler) mutate(ch *Chromosome) {
	for _, gene := range ch.genes {
		for j := range gene.employeeIDs {
			if rand.Float64() > s.parameters.MutationRate {
				continue
			}

			replacements := s.unassignedCandidates(gene)
			if len(replacements) > 0 {
				gene.employeeIDs[j] = replacements[rand.Intn(len(replacements))]
			}
		}

		if len(gene.employeeIDs) < int(gene.requiredNum) && rand.Float64() <= s.parameters.MutationRate {
			replacements := s.unassignedCandidates(gene)
			if len(replacements) > 0 {
				gene.employeeIDs = append(gene.employeeIDs, replacements[rand.Intn(len(replacements))])
			}
		}
	}
}

func (s *Scheduler) unassignedCandidates(gene *Gene) []uuid.UUID {
	result := make([]uuid.UUID, 0)
	for _, id := range s.candidates[gene.shiftID] {
		if !slices.Contains(gene.employeeIDs, id) {
			result = append(result, id)
		}
	}
	return result
}
